package validators

import "go.mongodb.org/mongo-driver/bson"

// ExhibitionValidator keeps the quota counters non-negative at the storage
// layer as well.
var ExhibitionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"description",
			"venue",
			"start_date",
			"duration_day",
			"small_booth_quota",
			"big_booth_quota",
			"poster_picture",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 200,
			},

			"description": bson.M{
				"bsonType":  "string",
				"maxLength": 5000,
			},

			"venue": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 200,
			},

			"start_date": bson.M{
				"bsonType": "date",
			},

			"duration_day": bson.M{
				"bsonType": bson.A{"int", "long"},
				"minimum":  1,
			},

			"small_booth_quota": bson.M{
				"bsonType": bson.A{"int", "long"},
				"minimum":  0,
			},

			"big_booth_quota": bson.M{
				"bsonType": bson.A{"int", "long"},
				"minimum":  0,
			},

			"poster_picture": bson.M{
				"bsonType":  "string",
				"minLength": 1,
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
