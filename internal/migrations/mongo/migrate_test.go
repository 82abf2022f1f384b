package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections_CoverEveryStore(t *testing.T) {
	want := []string{"Bookings", "Commissions", "Guests", "Agents", "Units", "Notifications", "Audit_log"}
	got := Collections()

	if len(got) != len(want) {
		t.Fatalf("expected %d collections, got %d", len(want), len(got))
	}
	for _, name := range want {
		spec, ok := got[name]
		if !ok {
			t.Errorf("missing collection %s", name)
			continue
		}
		if _, ok := spec.Validator["$jsonSchema"]; !ok {
			t.Errorf("collection %s has no $jsonSchema validator", name)
		}
	}
}

func TestUniqueIndexes(t *testing.T) {
	tests := []struct {
		collection string
		key        string
	}{
		{"Commissions", "booking_id"},
		{"Guests", "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			for _, idx := range Collections()[tt.collection].Indexes {
				keys := idx.Keys.(bson.D)
				if len(keys) == 1 && keys[0].Key == tt.key {
					if idx.Options == nil || idx.Options.Unique == nil || !*idx.Options.Unique {
						t.Errorf("%s.%s index must be unique", tt.collection, tt.key)
					}
					return
				}
			}
			t.Errorf("no index on %s.%s", tt.collection, tt.key)
		})
	}
}
