// Package dedup partitions normalized import candidates into new and
// duplicate transactions by exact fingerprint match. No fuzzy matching:
// behavior stays predictable and testable.
package dedup

import (
	"context"
	"time"

	"github.com/finch-money/finch/internal/model"
)

// FingerprintSource is the narrow read interface onto the external record
// store: only fingerprints touching the batch's date range are consulted, the
// full transaction history is never loaded.
type FingerprintSource interface {
	FingerprintsInRange(ctx context.Context, accountID string, from, to time.Time) (map[string]struct{}, error)
}

// Result partitions a candidate batch.
type Result struct {
	New       []model.Transaction
	Duplicate []model.Transaction
}

// Partition splits candidates into new and duplicate. When two candidates in
// the same batch share a fingerprint, the first occurrence is kept and the
// rest are marked duplicate.
func Partition(ctx context.Context, src FingerprintSource, accountID string, candidates []model.Transaction) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, nil
	}

	from, to := dateRange(candidates)
	existing, err := src.FingerprintsInRange(ctx, accountID, from, to)
	if err != nil {
		return Result{}, err
	}

	res := Result{New: make([]model.Transaction, 0, len(candidates))}
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := existing[c.Fingerprint]; dup {
			res.Duplicate = append(res.Duplicate, c)
			continue
		}
		if _, dup := seen[c.Fingerprint]; dup {
			res.Duplicate = append(res.Duplicate, c)
			continue
		}
		seen[c.Fingerprint] = struct{}{}
		res.New = append(res.New, c)
	}
	return res, nil
}

func dateRange(txns []model.Transaction) (from, to time.Time) {
	from, to = txns[0].Date, txns[0].Date
	for _, t := range txns[1:] {
		if t.Date.Before(from) {
			from = t.Date
		}
		if t.Date.After(to) {
			to = t.Date
		}
	}
	return from, to
}
