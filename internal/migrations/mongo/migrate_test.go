package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections_UniqueIndexes(t *testing.T) {
	tests := []struct {
		collection string
		field      string
	}{
		{ExhibitionsCollection, "name"},
		{UsersCollection, "email"},
	}

	defs := Collections()
	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			def, ok := defs[tt.collection]
			if !ok {
				t.Fatalf("collection %s not defined", tt.collection)
			}
			found := false
			for _, idx := range def.Indexes {
				keys, ok := idx.Keys.(bson.D)
				if !ok || len(keys) != 1 || keys[0].Key != tt.field {
					continue
				}
				if idx.Options == nil || idx.Options.Unique == nil || !*idx.Options.Unique {
					t.Errorf("index on %s must be unique", tt.field)
				}
				found = true
			}
			if !found {
				t.Errorf("no index on %s", tt.field)
			}
		})
	}
}

func TestValidators_BoundQuotaAndAmount(t *testing.T) {
	props := func(v bson.M) bson.M {
		return v["$jsonSchema"].(bson.M)["properties"].(bson.M)
	}

	booking := props(Collections()[BookingsCollection].Validator)
	amount := booking["amount"].(bson.M)
	if amount["minimum"] != 1 || amount["maximum"] != 6 {
		t.Errorf("amount must be bounded to 1..6, got %v", amount)
	}

	exhibition := props(Collections()[ExhibitionsCollection].Validator)
	for _, field := range []string{"small_booth_quota", "big_booth_quota"} {
		if exhibition[field].(bson.M)["minimum"] != 0 {
			t.Errorf("%s must not go below zero", field)
		}
	}
}
