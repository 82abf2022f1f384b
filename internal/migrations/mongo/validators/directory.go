package validators

import "go.mongodb.org/mongo-driver/bson"

var GuestValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"name", "phone", "created_at"},
		"properties": bson.M{
			"name":  bson.M{"bsonType": "string", "minLength": 1, "maxLength": 200},
			"email": bson.M{"bsonType": "string"},
			"phone": bson.M{"bsonType": "string", "pattern": `^\+639\d{9}$`},
		},
	},
}

var AgentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"name", "commission_rate"},
		"properties": bson.M{
			"name":            bson.M{"bsonType": "string", "minLength": 1},
			"commission_rate": bson.M{"bsonType": bson.A{"double", "int", "long"}, "minimum": 0, "maximum": 1},
		},
	},
}

var UnitValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"name", "base_price", "base_pax", "extra_pax_price"},
		"properties": bson.M{
			"name":            bson.M{"bsonType": "string", "minLength": 1},
			"base_price":      bson.M{"bsonType": integer, "minimum": 0},
			"base_pax":        bson.M{"bsonType": integer, "minimum": 1},
			"extra_pax_price": bson.M{"bsonType": integer, "minimum": 0},
		},
	},
}

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"user_id", "title", "message", "severity", "created_at"},
		"properties": bson.M{
			"user_id":  bson.M{"bsonType": "string", "minLength": 1},
			"severity": bson.M{"enum": []string{"info", "success", "warning", "error"}},
		},
	},
}

var AuditValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"actor_id", "action", "entity_type", "entity_id", "created_at"},
		"properties": bson.M{
			"action":      bson.M{"bsonType": "string", "minLength": 1},
			"entity_type": bson.M{"enum": []string{"booking", "commission"}},
		},
	},
}
