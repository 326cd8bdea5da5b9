package validators

import "go.mongodb.org/mongo-driver/bson"

var SubscriptionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"member_id",
			"plan_id",
			"plan_type",
			"status",
			"start_date",
			"end_date",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"member_id": bson.M{
				"bsonType": "string",
			},

			"plan_id": bson.M{
				"bsonType": "string",
			},

			"plan_type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"MONTHLY",
					"YEARLY",
					"WEEKLY",
					"DAILY",
					"VIP",
				},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"ACTIVE",
					"FROZEN",
					"EXPIRED",
					"BLOCKED",
				},
			},

			"start_date": bson.M{
				"bsonType": "date",
			},

			"end_date": bson.M{
				"bsonType": "date",
			},

			"remaining_entries": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"unlimited": bson.M{
				"bsonType": "bool",
			},

			"debt": bson.M{
				"bsonType": []string{"double", "int"},
				"minimum":  0,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
