package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// The engine's idempotency rides on two partial unique indexes. If
// either loses its uniqueness or its partial filter, concurrent
// writers can double-lease a stall or double-bill a period.
func TestMigrationIndexGuards(t *testing.T) {
	indexes := migrationIndexes()

	tests := []struct {
		name       string
		collection string
		keys       bson.D
		filter     bson.M
	}{
		{
			name:       "one active lease per stall",
			collection: colLeases,
			keys:       bson.D{{Key: "stall_id", Value: 1}},
			filter:     bson.M{"status": "active"},
		},
		{
			name:       "one renewal invoice per lease and period",
			collection: colInvoices,
			keys:       bson.D{{Key: "lease_id", Value: 1}, {Key: "period", Value: 1}},
			filter:     bson.M{"origin": "renewal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := findIndex(indexes[tt.collection], tt.keys)
			if idx == nil {
				t.Fatalf("no index on %v in %s", tt.keys, tt.collection)
			}
			if idx.Options == nil {
				t.Fatalf("index on %v has no options", tt.keys)
			}

			var io options.IndexOptions
			for _, set := range idx.Options.List() {
				if err := set(&io); err != nil {
					t.Fatalf("apply index option: %v", err)
				}
			}

			if io.Unique == nil || !*io.Unique {
				t.Errorf("index on %v is not unique", tt.keys)
			}
			if io.PartialFilterExpression == nil {
				t.Fatalf("index on %v has no partial filter", tt.keys)
			}
			got, ok := io.PartialFilterExpression.(bson.M)
			if !ok {
				t.Fatalf("partial filter has type %T, want bson.M", io.PartialFilterExpression)
			}
			for k, want := range tt.filter {
				if got[k] != want {
					t.Errorf("partial filter %s = %v, want %v", k, got[k], want)
				}
			}
		})
	}
}

func findIndex(models []mongo.IndexModel, keys bson.D) *mongo.IndexModel {
	for i := range models {
		k, ok := models[i].Keys.(bson.D)
		if !ok || len(k) != len(keys) {
			continue
		}
		match := true
		for j := range keys {
			if k[j].Key != keys[j].Key || k[j].Value != keys[j].Value {
				match = false
				break
			}
		}
		if match {
			return &models[i]
		}
	}
	return nil
}
