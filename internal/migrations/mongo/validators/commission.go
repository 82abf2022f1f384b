package validators

import "go.mongodb.org/mongo-driver/bson"

var CommissionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"booking_id", "agent_id", "amount", "rate", "status", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},
			"agent_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"amount": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},
			"rate": bson.M{
				"bsonType": "double",
				"minimum":  0,
				"maximum":  1,
			},
			"status": bson.M{
				"enum": []string{"PENDING", "PAID_OUT", "REJECTED"},
			},
			"paid_at": bson.M{
				"bsonType": "date",
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
