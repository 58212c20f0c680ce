package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
)

// AccountRepo handles accounts.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Upsert(ctx context.Context, a Account) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO accounts(id, name, institution, created_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
	 name=excluded.name,
	 institution=excluded.institution;
	`, a.ID, a.Name, a.Institution)
	return err
}

func (r *AccountRepo) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, institution, created_at FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Institution, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Ensure creates (or refreshes) the account named by an import profile and
// returns its id. The id is derived deterministically from the name so that
// repeated imports of the same profile land on the same account.
func (r *AccountRepo) Ensure(ctx context.Context, name, institution string) (string, error) {
	id := DeterministicAccountID(name)
	if err := r.Upsert(ctx, Account{ID: id, Name: strings.TrimSpace(name), Institution: institution}); err != nil {
		return "", err
	}
	return id, nil
}

// DeterministicAccountID maps an account name to a stable uuid.
func DeterministicAccountID(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
