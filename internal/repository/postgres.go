package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

// PostgresResultRepository implements ResultRepository using
// PostgreSQL. The backing table:
//
//	CREATE TABLE tax_package_results (
//	    cart_id     TEXT        NOT NULL,
//	    package_key TEXT        NOT NULL,
//	    position    INT         NOT NULL,
//	    payload     JSONB       NOT NULL,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (cart_id, package_key)
//	);
type PostgresResultRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewPostgresResultRepository creates a new PostgreSQL result
// repository.
func NewPostgresResultRepository(db *sql.DB, logger *logging.Logger) *PostgresResultRepository {
	return &PostgresResultRepository{
		db:     db,
		logger: logger,
	}
}

// Replace atomically swaps the persisted result set for a cart/order.
// Each calculation pass rebuilds the set from scratch; it is never an
// append-only log.
func (r *PostgresResultRepository) Replace(ctx context.Context, cartID string, results []*models.PackageResult) error {
	r.logger.Debug("Replacing package results", logging.Fields{
		"cart_id": cartID,
		"count":   len(results),
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin replace transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tax_package_results WHERE cart_id = $1`, cartID); err != nil {
		return errors.Wrap(err, "clear previous package results")
	}

	const insert = `
		INSERT INTO tax_package_results (cart_id, package_key, position, payload)
		VALUES ($1, $2, $3, $4)
	`
	for i, result := range results {
		payload, err := json.Marshal(result)
		if err != nil {
			return errors.Wrap(err, "marshal package result")
		}
		if _, err := tx.ExecContext(ctx, insert, cartID, result.Key, i, payload); err != nil {
			r.logger.Error("Failed to insert package result", logging.Fields{
				"cart_id":     cartID,
				"package_key": result.Key,
				"error":       err.Error(),
			})
			return errors.Wrap(err, "insert package result")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit package results")
	}

	r.logger.Info("Package results persisted", logging.Fields{
		"cart_id": cartID,
		"count":   len(results),
	})
	return nil
}

// GetByCartID returns the persisted results for a cart/order in the
// order packages were built.
func (r *PostgresResultRepository) GetByCartID(ctx context.Context, cartID string) ([]*models.PackageResult, error) {
	const query = `
		SELECT payload
		FROM tax_package_results
		WHERE cart_id = $1
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "query package results")
	}
	defer rows.Close()

	results := make([]*models.PackageResult, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, "scan package result")
		}
		var result models.PackageResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, errors.Wrap(err, "unmarshal package result")
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

// Delete drops all persisted results for a cart/order.
func (r *PostgresResultRepository) Delete(ctx context.Context, cartID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tax_package_results WHERE cart_id = $1`, cartID)
	if err != nil {
		return errors.Wrap(err, "delete package results")
	}

	deleted, _ := result.RowsAffected()
	r.logger.Debug("Package results deleted", logging.Fields{
		"cart_id": cartID,
		"count":   deleted,
	})
	return nil
}
