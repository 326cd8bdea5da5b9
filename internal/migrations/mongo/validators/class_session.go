package validators

import "go.mongodb.org/mongo-driver/bson"

var ClassSessionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"trainer_id",
			"start_time",
			"end_time",
			"capacity",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"trainer_id": bson.M{
				"bsonType": "string",
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"capacity": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  200,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"OPEN",
					"FULL",
					"CANCELLED",
					"COMPLETED",
					"CLOSED",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
