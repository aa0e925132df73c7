package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/hrygo/shopsense/internal/profile"
	"github.com/hrygo/shopsense/store"
)

func newTestDriver(t *testing.T) store.Driver {
	t.Helper()

	prof := &profile.Profile{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "shopsense_test.db"),
	}
	driver, err := NewDB(prof)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = driver.Close() })

	if err := driver.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return driver
}

func TestEncodeDecodeVector(t *testing.T) {
	in := []float32{0.1, -2.5, 3.75, 0}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decodeVector: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("Expected %d values, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("Value %d: expected %f, got %f", i, in[i], out[i])
		}
	}

	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for blob not divisible by 4")
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	if got := cosineSimilarity(a, a); math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("Expected self-similarity 1, got %f", got)
	}
	if got := cosineSimilarity(a, []float32{0, 1, 0}); got != 0 {
		t.Errorf("Expected orthogonal similarity 0, got %f", got)
	}
	if got := cosineSimilarity(a, []float32{0, 1}); got != 0 {
		t.Errorf("Expected 0 for dimension mismatch, got %f", got)
	}
}

func TestUpsertAndListProducts(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	created, err := driver.UpsertProduct(ctx, &store.UpsertProduct{
		UID:    "p-1",
		Name:   "Danone Yaourt Nature",
		Brand:  "danone",
		Market: "aziza",
		Price:  1.2,
	})
	if err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
	if created.ID == 0 {
		t.Error("Expected assigned product ID")
	}

	// Upsert again with a new price; same uid must update, not duplicate.
	updated, err := driver.UpsertProduct(ctx, &store.UpsertProduct{
		UID:    "p-1",
		Name:   "Danone Yaourt Nature",
		Brand:  "danone",
		Market: "aziza",
		Price:  1.35,
	})
	if err != nil {
		t.Fatalf("UpsertProduct update: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("Expected same ID %d after upsert, got %d", created.ID, updated.ID)
	}

	market := "aziza"
	list, err := driver.ListProducts(ctx, &store.FindProduct{Market: &market})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 product, got %d", len(list))
	}
	if list[0].Price != 1.35 {
		t.Errorf("Expected updated price 1.35, got %f", list[0].Price)
	}
}

func TestVectorSearchRanksBySimilarity(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	products := []struct {
		uid       string
		market    string
		embedding []float32
	}{
		{"close", "aziza", []float32{1, 0, 0}},
		{"far", "aziza", []float32{0, 1, 0}},
		{"other-market", "carrefour", []float32{1, 0, 0}},
	}
	for _, p := range products {
		_, err := driver.UpsertProduct(ctx, &store.UpsertProduct{
			UID:            p.uid,
			Name:           p.uid,
			Market:         p.market,
			Price:          1,
			Embedding:      p.embedding,
			EmbeddingModel: "test-model",
		})
		if err != nil {
			t.Fatalf("UpsertProduct %s: %v", p.uid, err)
		}
	}

	hits, err := driver.SearchProducts(ctx, &store.SearchProductsOptions{
		Vector: []float32{1, 0, 0},
		Market: "aziza",
		Model:  "test-model",
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("SearchProducts: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Expected 2 hits in market aziza, got %d", len(hits))
	}
	if hits[0].UID != "close" {
		t.Errorf("Expected closest product first, got %s", hits[0].UID)
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("Expected descending scores, got %f then %f", hits[0].Score, hits[1].Score)
	}
}

func TestTextSearchScoresTiers(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	for _, p := range []struct{ uid, name, normalized string }{
		{"exact", "Danone Yaourt", "danone yaourt"},
		{"partial", "Danone Yaourt Nature 4x125g", "danone yaourt nature"},
		{"unrelated", "Huile d'olive", "huile olive"},
	} {
		_, err := driver.UpsertProduct(ctx, &store.UpsertProduct{
			UID:            p.uid,
			Name:           p.name,
			NormalizedName: p.normalized,
			Market:         "aziza",
			Price:          1,
		})
		if err != nil {
			t.Fatalf("UpsertProduct %s: %v", p.uid, err)
		}
	}

	hits, err := driver.SearchProducts(ctx, &store.SearchProductsOptions{
		Text:  "danone yaourt",
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("SearchProducts: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Expected 2 hits, got %d", len(hits))
	}
	if hits[0].UID != "exact" || hits[0].Score != 1.0 {
		t.Errorf("Expected exact match first with score 1.0, got %s score %f", hits[0].UID, hits[0].Score)
	}
	if hits[1].Score != 0.8 {
		t.Errorf("Expected substring score 0.8, got %f", hits[1].Score)
	}
}

func TestDeleteProduct(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	_, err := driver.UpsertProduct(ctx, &store.UpsertProduct{
		UID:            "p-1",
		Name:           "x",
		Market:         "aziza",
		Embedding:      []float32{1, 0},
		EmbeddingModel: "test-model",
	})
	if err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}

	if err := driver.DeleteProduct(ctx, "p-1"); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if err := driver.DeleteProduct(ctx, "p-1"); err == nil {
		t.Error("Expected error deleting missing product")
	}
}

func TestPrototypeBlobRoundTrip(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	blob, err := driver.GetPrototypeBlob(ctx, &store.FindPrototypeBlob{Model: "test-model"})
	if err != nil {
		t.Fatalf("GetPrototypeBlob: %v", err)
	}
	if blob != nil {
		t.Fatal("Expected nil blob before any save")
	}

	if err := driver.UpsertPrototypeBlob(ctx, &store.PrototypeBlob{
		Model:   "test-model",
		Payload: []byte(`{"prototypes":[]}`),
	}); err != nil {
		t.Fatalf("UpsertPrototypeBlob: %v", err)
	}

	blob, err = driver.GetPrototypeBlob(ctx, &store.FindPrototypeBlob{Model: "test-model"})
	if err != nil {
		t.Fatalf("GetPrototypeBlob: %v", err)
	}
	if blob == nil || string(blob.Payload) != `{"prototypes":[]}` {
		t.Errorf("Expected saved payload back, got %v", blob)
	}
}
