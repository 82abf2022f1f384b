package validators

import "go.mongodb.org/mongo-driver/bson"

var integer = bson.A{"int", "long"}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"unit_id",
			"guest_id",
			"guest_name",
			"guest_phone",
			"check_in",
			"check_out",
			"nights",
			"total_price",
			"down_payment",
			"balance",
			"status",
			"payment_status",
			"events",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"unit_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"guest_id": bson.M{
				"bsonType": "string",
			},

			"guest_name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 200,
			},

			"walk_in_guest_name": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
			},

			"guest_phone": bson.M{
				"bsonType": "string",
				"pattern":  `^\+639\d{9}$`,
			},

			"agent_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"check_in": bson.M{
				"bsonType": "date",
			},

			"check_out": bson.M{
				"bsonType": "date",
			},

			"adults": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"kids": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"toddlers": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"nights": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"nightly_rate": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"total_price": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"down_payment": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"balance": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"status": bson.M{
				"enum": []string{"PENDING", "CONFIRMED", "CANCELLED", "COMPLETED"},
			},

			"payment_status": bson.M{
				"enum": []string{"UNPAID", "PARTIAL", "PAID"},
			},

			"checkout_session_id": bson.M{
				"bsonType": "string",
			},

			"events": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"id", "kind", "at"},
					"properties": bson.M{
						"id":         bson.M{"bsonType": "string"},
						"kind":       bson.M{"bsonType": "string"},
						"actor_id":   bson.M{"bsonType": "string"},
						"actor_role": bson.M{"bsonType": "string"},
						"at":         bson.M{"bsonType": "date"},
						"payload":    bson.M{"bsonType": "object"},
					},
				},
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
