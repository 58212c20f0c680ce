package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finch-money/finch/internal/database"
	"github.com/finch-money/finch/internal/model"
)

// TransactionFilters defines list filters.
type TransactionFilters struct {
	AccountID  string
	BatchID    string
	CategoryID string
	Month      time.Time // use first day of month; zero time = no month filter
	Search     string
}

// TransactionRepo handles transactions.
type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

// CommitBatch writes a chunk of transactions and their tags in one database
// transaction. Either every row in the chunk lands or none does.
func (r *TransactionRepo) CommitBatch(ctx context.Context, txns []model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		insert, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions(
		 id, account_id, batch_id, date, amount, currency, payee, description,
		 category_id, flagged, fingerprint, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
		`)
		if err != nil {
			return err
		}
		defer insert.Close()

		tag, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO transaction_tags(transaction_id, tag) VALUES(?, ?)`)
		if err != nil {
			return err
		}
		defer tag.Close()

		for _, t := range txns {
			if _, err := insert.ExecContext(ctx,
				t.ID, t.AccountID, t.BatchID, t.Date.Format(time.DateOnly), t.Amount.String(),
				t.Currency, t.Payee, t.Description, t.CategoryID, t.Flagged, t.Fingerprint); err != nil {
				return fmt.Errorf("insert transaction %s: %w", t.ID, err)
			}
			for _, tg := range t.Tags {
				if _, err := tag.ExecContext(ctx, t.ID, tg); err != nil {
					return fmt.Errorf("tag transaction %s: %w", t.ID, err)
				}
			}
		}
		return nil
	})
}

// ApplyRuleResults writes back the fields rules are allowed to change:
// category, payee, flag and tags. Row identity and amounts are untouched.
func (r *TransactionRepo) ApplyRuleResults(ctx context.Context, txns []model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		update, err := tx.PrepareContext(ctx, `
		UPDATE transactions SET category_id = ?, payee = ?, flagged = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?;
		`)
		if err != nil {
			return err
		}
		defer update.Close()

		tag, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO transaction_tags(transaction_id, tag) VALUES(?, ?)`)
		if err != nil {
			return err
		}
		defer tag.Close()

		for _, t := range txns {
			if _, err := update.ExecContext(ctx, t.CategoryID, t.Payee, t.Flagged, t.ID); err != nil {
				return fmt.Errorf("update transaction %s: %w", t.ID, err)
			}
			for _, tg := range t.Tags {
				if _, err := tag.ExecContext(ctx, t.ID, tg); err != nil {
					return fmt.Errorf("tag transaction %s: %w", t.ID, err)
				}
			}
		}
		return nil
	})
}

// FingerprintsInRange returns the fingerprints already stored for an account
// within the given date range, inclusive on both ends.
func (r *TransactionRepo) FingerprintsInRange(ctx context.Context, accountID string, from, to time.Time) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT fingerprint FROM transactions
	WHERE account_id = ? AND date >= ? AND date <= ?;
	`, accountID, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		out[fp] = struct{}{}
	}
	return out, rows.Err()
}

func (r *TransactionRepo) List(ctx context.Context, f TransactionFilters) ([]model.Transaction, error) {
	var where []string
	var args []interface{}

	if f.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, f.BatchID)
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if !f.Month.IsZero() {
		start := time.Date(f.Month.Year(), f.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		where = append(where, "date >= ? AND date < ?")
		args = append(args, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	if f.Search != "" {
		where = append(where, "(description LIKE ? OR payee LIKE ?)")
		args = append(args, "%"+f.Search+"%", "%"+f.Search+"%")
	}

	query := "SELECT id, account_id, batch_id, date, amount, currency, payee, description, category_id, flagged, fingerprint FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		tags, err := r.fetchTags(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Tags = tags
	}
	return out, nil
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (*model.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, account_id, batch_id, date, amount, currency, payee, description, category_id, flagged, fingerprint FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	tags, err := r.fetchTags(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Tags = tags
	return &t, nil
}

// CountForBatch returns how many rows a batch committed. Used to verify a
// resumed import against its ledger entry.
func (r *TransactionRepo) CountForBatch(ctx context.Context, batchID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE batch_id = ?`, batchID).Scan(&n)
	return n, err
}

func (r *TransactionRepo) fetchTags(ctx context.Context, transactionID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tag FROM transaction_tags WHERE transaction_id = ? ORDER BY tag`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// scanTransaction handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (model.Transaction, error) {
	var t model.Transaction
	var date, amount string
	var category sql.NullString
	if err := row.Scan(&t.ID, &t.AccountID, &t.BatchID, &date, &amount, &t.Currency,
		&t.Payee, &t.Description, &category, &t.Flagged, &t.Fingerprint); err != nil {
		return model.Transaction{}, err
	}
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	t.Date = d
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	t.Amount = a
	if category.Valid {
		t.CategoryID = &category.String
	}
	return t, nil
}
