package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/shopsense/store"
)

// scanCap bounds the brute-force vector scan. Development catalogs fit well
// under this; production ones belong on PostgreSQL.
const scanCap = 10000

// UpsertProduct inserts or updates a product keyed by uid, and its embedding
// when one is provided.
func (d *DB) UpsertProduct(ctx context.Context, upsert *store.UpsertProduct) (*store.Product, error) {
	now := time.Now().Unix()

	stmt := `
		INSERT INTO product (uid, name, normalized_name, description, brand, category, market, price, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (uid)
		DO UPDATE SET
			name = excluded.name,
			normalized_name = excluded.normalized_name,
			description = excluded.description,
			brand = excluded.brand,
			category = excluded.category,
			market = excluded.market,
			price = excluded.price,
			updated_ts = excluded.updated_ts
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
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (product_id, model)
			DO UPDATE SET
				embedding = excluded.embedding,
				updated_ts = excluded.updated_ts
		`
		if _, err := d.db.ExecContext(ctx, embStmt, product.ID, encodeVector(upsert.Embedding), upsert.EmbeddingModel, now, now); err != nil {
			return nil, errors.Wrap(err, "failed to upsert product embedding")
		}
	}

	return product, nil
}

// ListProducts lists products matching the find conditions.
func (d *DB) ListProducts(ctx context.Context, find *store.FindProduct) ([]*store.Product, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.Market != nil {
		where, args = append(where, "market = ?"), append(args, *find.Market)
	}
	if find.Brand != nil {
		where, args = append(where, "brand = ?"), append(args, *find.Brand)
	}
	if find.Category != nil {
		where, args = append(where, "category = ?"), append(args, *find.Category)
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
	var id int64
	err := d.db.QueryRowContext(ctx, "SELECT id FROM product WHERE uid = ?", uid).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product with uid %s not found", uid)
	}
	if err != nil {
		return errors.Wrap(err, "failed to find product")
	}

	if _, err := d.db.ExecContext(ctx, "DELETE FROM product_embedding WHERE product_id = ?", id); err != nil {
		return errors.Wrap(err, "failed to delete product embeddings")
	}
	if _, err := d.db.ExecContext(ctx, "DELETE FROM product WHERE id = ?", id); err != nil {
		return errors.Wrap(err, "failed to delete product")
	}
	return nil
}

// ListProductEmbeddings lists stored vectors with their product labels.
func (d *DB) ListProductEmbeddings(ctx context.Context, find *store.FindProductEmbedding) ([]*store.ProductEmbedding, error) {
	limit := find.Limit
	if limit <= 0 {
		limit = scanCap
	}

	query := `
		SELECT p.uid, p.category, p.brand, e.model, e.embedding
		FROM product p
		INNER JOIN product_embedding e ON p.id = e.product_id
		WHERE e.model = ?
		ORDER BY p.id
		LIMIT ?
	`

	rows, err := d.db.QueryContext(ctx, query, find.Model, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list product embeddings")
	}
	defer rows.Close()

	list := []*store.ProductEmbedding{}
	for rows.Next() {
		var embedding store.ProductEmbedding
		var blob []byte
		err := rows.Scan(
			&embedding.ProductUID,
			&embedding.Category,
			&embedding.Brand,
			&embedding.Model,
			&blob,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan product embedding")
		}

		vec, err := decodeVector(blob)
		if err != nil {
			return nil, errors.Wrapf(err, "product %s", embedding.ProductUID)
		}
		embedding.Embedding = vec
		list = append(list, &embedding)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// SearchProducts performs similarity search. Vector queries scan embeddings
// and compute cosine similarity in Go; text queries match the normalized name.
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

	where, args := []string{"e.model = ?"}, []any{opts.Model}
	if opts.Market != "" {
		where, args = append(where, "p.market = ?"), append(args, opts.Market)
	}

	query := `
		SELECT
			p.id, p.uid, p.name, p.normalized_name, p.description, p.brand, p.category, p.market, p.price, p.created_ts, p.updated_ts,
			e.embedding
		FROM product p
		INNER JOIN product_embedding e ON p.id = e.product_id
		WHERE ` + strings.Join(where, " AND ") + `
		LIMIT ` + fmt.Sprintf("%d", scanCap)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search products")
	}
	defer rows.Close()

	results := []*store.ProductWithScore{}
	for rows.Next() {
		var product store.Product
		var blob []byte

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
			&blob,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan product search result")
		}

		vec, err := decodeVector(blob)
		if err != nil {
			return nil, errors.Wrapf(err, "product %s", product.UID)
		}

		results = append(results, &store.ProductWithScore{
			Product: &product,
			Score:   cosineSimilarity(opts.Vector, vec),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// textSearch matches on the normalized name. The score is a coarse tier:
// 1.0 for an exact normalized-name match, 0.8 for a substring hit.
func (d *DB) textSearch(ctx context.Context, opts *store.SearchProductsOptions) ([]*store.ProductWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	lower := strings.ToLower(opts.Text)
	where := []string{"(LOWER(p.normalized_name) LIKE ? OR LOWER(p.name) LIKE ?)"}
	args := []any{"%" + lower + "%", "%" + lower + "%"}

	if opts.Market != "" {
		where, args = append(where, "p.market = ?"), append(args, opts.Market)
	}

	query := `
		SELECT
			p.id, p.uid, p.name, p.normalized_name, p.description, p.brand, p.category, p.market, p.price, p.created_ts, p.updated_ts,
			CASE WHEN LOWER(p.normalized_name) = ? THEN 1.0 ELSE 0.8 END AS score
		FROM product p
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY score DESC, p.price ASC
		LIMIT ?
	`

	// The CASE placeholder precedes the WHERE placeholders in the statement.
	queryArgs := append([]any{lower}, args...)
	queryArgs = append(queryArgs, limit)

	rows, err := d.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to text search products")
	}
	defer rows.Close()

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
