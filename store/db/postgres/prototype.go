package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/shopsense/store"
)

// UpsertPrototypeBlob saves the serialized prototype table for a model.
func (d *DB) UpsertPrototypeBlob(ctx context.Context, blob *store.PrototypeBlob) error {
	stmt := `
		INSERT INTO prototype_blob (model, payload, updated_ts)
		VALUES (` + placeholders(3) + `)
		ON CONFLICT (model)
		DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_ts = EXCLUDED.updated_ts
	`

	if _, err := d.db.ExecContext(ctx, stmt, blob.Model, blob.Payload, time.Now().Unix()); err != nil {
		return errors.Wrap(err, "failed to upsert prototype blob")
	}
	return nil
}

// GetPrototypeBlob loads the prototype table for a model. Returns nil without
// error when no table has been saved yet.
func (d *DB) GetPrototypeBlob(ctx context.Context, find *store.FindPrototypeBlob) (*store.PrototypeBlob, error) {
	query := `SELECT model, payload, updated_ts FROM prototype_blob WHERE model = ` + placeholder(1)

	blob := &store.PrototypeBlob{}
	err := d.db.QueryRowContext(ctx, query, find.Model).Scan(&blob.Model, &blob.Payload, &blob.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get prototype blob")
	}
	return blob, nil
}
