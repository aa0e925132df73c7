package store

// Product represents one catalog entry scraped or imported from a market.
type Product struct {
	ID             int64
	UID            string // stable external identifier (UUID)
	Name           string
	NormalizedName string
	Description    string
	Brand          string
	Category       string
	Market         string
	Price          float64
	CreatedTs      int64
	UpdatedTs      int64
}

// UpsertProduct specifies a product create-or-update keyed by (uid).
type UpsertProduct struct {
	UID            string
	Name           string
	NormalizedName string
	Description    string
	Brand          string
	Category       string
	Market         string
	Price          float64
	Embedding      []float32
	EmbeddingModel string
}

// FindProduct specifies the conditions for listing products.
type FindProduct struct {
	UID      *string
	Market   *string
	Brand    *string
	Category *string
	Limit    int
	Offset   int
}

// SearchProductsOptions specifies a similarity search over the catalog.
// Vector search is used when Vector is non-empty; otherwise the drivers fall
// back to text matching on the normalized name.
type SearchProductsOptions struct {
	Vector []float32
	Text   string
	Market string // empty means all markets
	Model  string // embedding model the vectors were produced with
	Limit  int
}

// ProductWithScore is a search hit with its similarity score in [0,1].
type ProductWithScore struct {
	*Product
	Score float32
}

// ProductEmbedding joins a stored vector with its product's labels, used as
// training input when rebuilding the prototype table.
type ProductEmbedding struct {
	ProductUID string
	Category   string
	Brand      string
	Model      string
	Embedding  []float32
}

// FindProductEmbedding specifies the conditions for listing embeddings.
type FindProductEmbedding struct {
	Model string
	Limit int
}
