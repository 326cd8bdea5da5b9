package validators

import "go.mongodb.org/mongo-driver/bson"

var WaitingListValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"session_id",
			"member_id",
			"status",
			"position",
			"priority_score",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"session_id": bson.M{
				"bsonType": "string",
			},

			"member_id": bson.M{
				"bsonType": "string",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"WAITING",
					"ASSIGNED",
					"CONFIRMED",
					"EXPIRED",
					"CANCELLED",
				},
			},

			"position": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"priority_score": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"assigned_at": bson.M{
				"bsonType": "date",
			},

			"approval_deadline": bson.M{
				"bsonType": "date",
			},

			"confirmed_at": bson.M{
				"bsonType": "date",
			},

			"cancelled_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
