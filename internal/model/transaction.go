package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one normalized bank transaction. Created by the importer,
// mutated only by rule actions (category, tags, payee, flag) after that.
type Transaction struct {
	ID          string
	AccountID   string
	BatchID     string
	Date        time.Time // calendar date at UTC midnight, timezone-naive
	Amount      decimal.Decimal
	Currency    string
	Payee       string
	Description string
	CategoryID  *string
	Tags        []string
	Flagged     bool
	Fingerprint string
}

// Clone returns a copy safe to mutate without aliasing Tags.
func (t Transaction) Clone() Transaction {
	out := t
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	if t.CategoryID != nil {
		id := *t.CategoryID
		out.CategoryID = &id
	}
	return out
}

// HasTag reports whether the tag is already present (case-insensitive).
func (t Transaction) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if strings.EqualFold(have, tag) {
			return true
		}
	}
	return false
}

// Fingerprint is the dedup identity of a source row: a pure function of the
// immutable fields, stable across re-imports of the same statement. The raw
// description is uppercased and whitespace-collapsed so that export quirks
// (double spaces, trailing padding) do not defeat duplicate detection.
func ComputeFingerprint(accountID string, date time.Time, amount decimal.Decimal, rawDescription string) string {
	desc := strings.Join(strings.Fields(strings.ToUpper(rawDescription)), " ")
	joined := strings.Join([]string{
		accountID,
		date.Format(time.DateOnly),
		amount.String(),
		desc,
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

// DateOnly truncates t to a UTC calendar date. Rule date comparisons and
// fingerprints operate on calendar dates, never timestamps.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
