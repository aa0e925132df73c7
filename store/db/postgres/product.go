package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/shopsense/store"
)

// UpsertProduct inserts or updates a product keyed by uid, and its embedding
// when one is provided.
func (d *DB) UpsertProduct(ctx context.Context, upsert *store.UpsertProduct) (*store.Product, error) {
	now := time.Now().Unix()

	stmt := `
		INSERT INTO product (uid, name, normalized_name, description, brand, category, market, price, created_ts, updated_ts)
		VALUES (` + placeholders(10) + `)
		ON CONFLICT (uid)
		DO UPDATE SET
			name = EXCLUDED.name,
			normalized_name = EXCLUDED.normalized_name,
			description = EXCLUDED.description,
			brand = EXCLUDED.brand,
			category = EXCLUDED.category,
			market = EXCLUDED.market,
			price = EXCLUDED.price,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`

	product := &store.Product{
		UID:            upsert.UID,
		Name:           upsert.Name,
		NormalizedName: upsert.NormalizedName,
		Description:    upsert.Description,
		Brand:          upsert.Brand,
		Category:       upsert.Category,
		Market:         upsert.Market,
		Price:          upsert.Price,
	}

	err := d.db.QueryRowContext(ctx, stmt,
		upsert.UID,
		upsert.Name,
		upsert.NormalizedName,
		upsert.Description,
		upsert.Brand,
		upsert.Category,
		upsert.Market,
		upsert.Price,
		now,
		now,
	).Scan(&product.ID, &product.CreatedTs, &product.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert product")
	}

	if len(upsert.Embedding) > 0 {
		embStmt := `
			INSERT INTO product_embedding (product_id, embedding, model, created_ts, updated_ts)
			VALUES (` + placeholders(5) + `)
			ON CONFLICT (product_id, model)
			DO UPDATE SET
				embedding = EXCLUDED.embedding,
				updated_ts = EXCLUDED.updated_ts
		`
		vector := pgvector.NewVector(upsert.Embedding)
		if _, err := d.db.ExecContext(ctx, embStmt, product.ID, vector, upsert.EmbeddingModel, now, now); err != nil {
			return nil, errors.Wrap(err, "failed to upsert product embedding")
		}
	}

	return product, nil
}

// ListProducts lists products matching the find conditions.
func (d *DB) ListProducts(ctx context.Context, find *store.FindProduct) ([]*store.Product, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.Market != nil {
		where, args = append(where, "market = "+placeholder(len(args)+1)), append(args, *find.Market)
	}
	if find.Brand != nil {
		where, args = append(where, "brand = "+placeholder(len(args)+1)), append(args, *find.Brand)
	}
	if find.Category != nil {
		where, args = append(where, "category = "+placeholder(len(args)+1)), append(args, *find.Category)
	}

	query := `
		SELECT id, uid, name, normalized_name, description, brand, category, market, price, created_ts, updated_ts
		FROM product
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
		if find.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	defer rows.Close()

	list := []*store.Product{}
	for rows.Next() {
		var product store.Product
		err := rows.Scan(
			&product.ID,
			&product.UID,
			&product.Name,
			&product.NormalizedName,
			&product.Description,
			&product.Brand,
			&product.Category,
			&product.Market,
			&product.Price,
			&product.CreatedTs,
			&product.UpdatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan product")
		}
		list = append(list, &product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// DeleteProduct deletes a product and its embeddings by uid.
func (d *DB) DeleteProduct(ctx context.Context, uid string) error {
	stmt := `DELETE FROM product WHERE uid = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, uid)
	if err != nil {
		return errors.Wrap(err, "failed to delete product")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("product with uid %s not found", uid)
	}
	return nil
}

// ListProductEmbeddings lists stored vectors with their product labels.
func (d *DB) ListProductEmbeddings(ctx context.Context, find *store.FindProductEmbedding) ([]*store.ProductEmbedding, error) {
	limit := find.Limit
	if limit <= 0 {
		limit = 10000
	}

	query := `
		SELECT p.uid, p.category, p.brand, e.model, e.embedding
		FROM product p
		INNER JOIN product_embedding e ON p.id = e.product_id
		WHERE e.model = ` + placeholder(1) + `
		ORDER BY p.id
		LIMIT ` + placeholder(2)

	rows, err := d.db.QueryContext(ctx, query, find.Model, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list product embeddings")
	}
	defer rows.Close()

	list := []*store.ProductEmbedding{}
	for rows.Next() {
		var embedding store.ProductEmbedding
		var vector pgvector.Vector
		err := rows.Scan(
			&embedding.ProductUID,
			&embedding.Category,
			&embedding.Brand,
			&embedding.Model,
			&vector,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan product embedding")
		}
		embedding.Embedding = vector.Slice()
		list = append(list, &embedding)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// SearchProducts performs similarity search using pgvector when a query
// vector is present, falling back to name matching otherwise.
func (d *DB) SearchProducts(ctx context.Context, opts *store.SearchProductsOptions) ([]*store.ProductWithScore, error) {
	if len(opts.Vector) > 0 {
		return d.vectorSearch(ctx, opts)
	}
	return d.textSearch(ctx, opts)
}

func (d *DB) vectorSearch(ctx context.Context, opts *store.SearchProductsOptions) ([]*store.ProductWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := []string{"e.model = " + placeholder(1)}, []any{opts.Model}
	argIdx := 2

	if opts.Market != "" {
		where = append(where, "p.market = "+placeholder(argIdx))
		args = append(args, opts.Market)
		argIdx++
	}

	// The <=> operator computes cosine distance (1 - cosine_similarity),
	// so ordering by distance ASC yields most similar first.
	query := `
		SELECT
			p.id, p.uid, p.name, p.normalized_name, p.description, p.brand, p.category, p.market, p.price, p.created_ts, p.updated_ts,
			1 - (e.embedding <=> ` + placeholder(argIdx) + `) AS score
		FROM product p
		INNER JOIN product_embedding e ON p.id = e.product_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY e.embedding <=> ` + placeholder(argIdx+1) + `
		LIMIT ` + placeholder(argIdx+2)

	vector := pgvector.NewVector(opts.Vector)
	args = append(args, vector, vector, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search products")
	}
	defer rows.Close()

	return scanProductHits(rows)
}

// textSearch matches on the normalized name. The score is a coarse tier:
// 1.0 for an exact normalized-name match, 0.8 for a substring hit. Callers
// that need finer text similarity rerank in the engine.
func (d *DB) textSearch(ctx context.Context, opts *store.SearchProductsOptions) ([]*store.ProductWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	pattern := "%" + strings.ToLower(opts.Text) + "%"
	where := []string{"(LOWER(p.normalized_name) LIKE " + placeholder(1) + " OR LOWER(p.name) LIKE " + placeholder(1) + ")"}
	args := []any{pattern}
	argIdx := 2

	if opts.Market != "" {
		where = append(where, "p.market = "+placeholder(argIdx))
		args = append(args, opts.Market)
		argIdx++
	}

	query := `
		SELECT
			p.id, p.uid, p.name, p.normalized_name, p.description, p.brand, p.category, p.market, p.price, p.created_ts, p.updated_ts,
			CASE WHEN LOWER(p.normalized_name) = ` + placeholder(argIdx) + ` THEN 1.0 ELSE 0.8 END AS score
		FROM product p
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY score DESC, p.price ASC
		LIMIT ` + placeholder(argIdx+1)

	args = append(args, strings.ToLower(opts.Text), limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to text search products")
	}
	defer rows.Close()

	return scanProductHits(rows)
}

func scanProductHits(rows *sql.Rows) ([]*store.ProductWithScore, error) {
	results := []*store.ProductWithScore{}
	for rows.Next() {
		var result store.ProductWithScore
		var product store.Product

		err := rows.Scan(
			&product.ID,
			&product.UID,
			&product.Name,
			&product.NormalizedName,
			&product.Description,
			&product.Brand,
			&product.Category,
			&product.Market,
			&product.Price,
			&product.CreatedTs,
			&product.UpdatedTs,
			&result.Score,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan product search result")
		}

		result.Product = &product
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
