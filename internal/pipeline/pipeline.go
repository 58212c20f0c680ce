// Package pipeline coordinates one import run end to end: decode, normalize,
// deduplicate, apply rules, persist. Each phase hands a batch to the next; a
// failure in one transaction or one rule never aborts the batch, only a
// persistence failure or cancellation does.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finch-money/finch/internal/dedup"
	"github.com/finch-money/finch/internal/importer"
	"github.com/finch-money/finch/internal/model"
	"github.com/finch-money/finch/internal/profile"
	"github.com/finch-money/finch/internal/rules"
)

// ErrAlreadyImported is returned when the file ledger records a completed
// batch for the same source file.
var ErrAlreadyImported = errors.New("file already imported")

// malformedSampleCap bounds how many row errors a summary carries; the full
// count is always in Summary.Malformed.
const malformedSampleCap = 20

// persistQueueDepth bounds the chunk queue in front of the persister, so a
// slow disk applies backpressure instead of growing an unbounded backlog.
const persistQueueDepth = 4

// PersistenceFailure aborts a batch partway through. Committed reports how
// many accepted transactions landed before the failing chunk; everything in
// the failing chunk rolled back.
type PersistenceFailure struct {
	BatchID   string
	Committed int
	Err       error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("persistence failure in batch %s after %d committed: %v", e.BatchID, e.Committed, e.Err)
}

func (e *PersistenceFailure) Unwrap() error { return e.Err }

// Store persists accepted transactions and answers fingerprint lookups.
type Store interface {
	CommitBatch(ctx context.Context, txns []model.Transaction) error
	FingerprintsInRange(ctx context.Context, accountID string, from, to time.Time) (map[string]struct{}, error)
}

// Updater writes rule results back onto already-stored transactions.
type Updater interface {
	ApplyRuleResults(ctx context.Context, txns []model.Transaction) error
}

// Accounts resolves an import profile's account name to a stored account id.
type Accounts interface {
	Ensure(ctx context.Context, name, institution string) (string, error)
}

// BatchLog is the file ledger.
type BatchLog interface {
	Create(ctx context.Context, b model.ImportBatch) error
	Finalize(ctx context.Context, b model.ImportBatch) error
	AlreadyImported(ctx context.Context, sourceFile string) (bool, error)
}

// Progress is a point-in-time view of a running import. Total is zero while
// rows are still being read (the stream length is unknown until EOF).
type Progress struct {
	Processed int
	Total     int
	Accepted  int
	Duplicate int
	Errors    int
}

// ProgressFunc receives periodic progress updates on the importing goroutine.
type ProgressFunc func(Progress)

// Summary is the final report of one import run.
type Summary struct {
	BatchID    string
	Profile    string
	Encoding   string
	RowCount   int
	Accepted   int
	Duplicates int
	Malformed  int
	RowErrors  []*importer.MalformedRowError
	Stats      rules.Stats
	Elapsed    time.Duration
}

// Coordinator wires the import phases together.
type Coordinator struct {
	Store    Store
	Updater  Updater
	Accounts Accounts
	Rules    rules.Source
	Batches  BatchLog

	Workers       int
	ChunkSize     int
	ProgressEvery int
	Currency      string
	AllowReimport bool // skip the file ledger check
	OnProgress    ProgressFunc
	Log           zerolog.Logger
}

// Import runs the full pipeline for one source file. Malformed rows and
// duplicate transactions are counted, not fatal; an undecodable file, a
// persistence failure or context cancellation fails the batch and is recorded
// in the ledger.
func (c *Coordinator) Import(ctx context.Context, r io.Reader, sourceFile string, p profile.Profile) (Summary, error) {
	start := time.Now()

	if !c.AllowReimport {
		done, err := c.Batches.AlreadyImported(ctx, sourceFile)
		if err != nil {
			return Summary{}, fmt.Errorf("check file ledger: %w", err)
		}
		if done {
			return Summary{}, fmt.Errorf("%s: %w", sourceFile, ErrAlreadyImported)
		}
	}

	batch := model.ImportBatch{
		ID:         uuid.NewString(),
		SourceFile: sourceFile,
		Profile:    p.Name,
		StartedAt:  time.Now().UTC(),
		Status:     model.BatchRunning,
	}
	if err := c.Batches.Create(ctx, batch); err != nil {
		return Summary{}, fmt.Errorf("open batch: %w", err)
	}

	sum, err := c.run(ctx, r, p, &batch)
	sum.BatchID = batch.ID
	sum.Profile = p.Name
	sum.Elapsed = time.Since(start)

	batch.RowCount = sum.RowCount
	batch.Accepted = sum.Accepted
	batch.Duplicates = sum.Duplicates
	batch.Malformed = sum.Malformed
	batch.DetectedEncoding = sum.Encoding
	batch.FinishedAt = time.Now().UTC()
	switch {
	case err == nil:
		batch.Status = model.BatchCompleted
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		batch.Status = model.BatchCanceled
		batch.Error = err.Error()
	default:
		batch.Status = model.BatchFailed
		batch.Error = err.Error()
	}
	if ferr := c.Batches.Finalize(context.WithoutCancel(ctx), batch); ferr != nil {
		c.Log.Error().Err(ferr).Str("batch_id", batch.ID).Msg("finalize batch record")
		if err == nil {
			err = fmt.Errorf("finalize batch: %w", ferr)
		}
	}

	c.Log.Info().
		Str("batch_id", batch.ID).
		Str("status", string(batch.Status)).
		Int("rows", sum.RowCount).
		Int("accepted", sum.Accepted).
		Int("duplicates", sum.Duplicates).
		Int("malformed", sum.Malformed).
		Dur("elapsed", sum.Elapsed).
		Msg("import finished")
	return sum, err
}

func (c *Coordinator) run(ctx context.Context, r io.Reader, p profile.Profile, batch *model.ImportBatch) (Summary, error) {
	var sum Summary

	accountID, err := c.Accounts.Ensure(ctx, p.Account, p.Name)
	if err != nil {
		return sum, fmt.Errorf("resolve account %q: %w", p.Account, err)
	}

	reader, err := importer.NewRowReader(r, p)
	if err != nil {
		return sum, err
	}
	sum.Encoding = reader.Encoding

	norm := &importer.Normalizer{
		Profile:   p,
		AccountID: accountID,
		BatchID:   batch.ID,
		Currency:  c.Currency,
	}

	candidates, err := c.readAll(ctx, reader, norm, &sum)
	if err != nil {
		return sum, err
	}

	part, err := dedup.Partition(ctx, c.Store, accountID, candidates)
	if err != nil {
		return sum, fmt.Errorf("deduplicate: %w", err)
	}
	sum.Duplicates = len(part.Duplicate)
	c.progress(sum, sum.RowCount, 0)

	ruleList, err := c.Rules.ListRules(ctx)
	if err != nil {
		return sum, fmt.Errorf("load rules: %w", err)
	}
	plan := rules.Compile(ruleList)
	for _, ve := range plan.Excluded {
		c.Log.Warn().Str("rule_id", ve.RuleID).Str("reason", ve.Reason).Msg("rule excluded from batch")
	}

	eng := rules.Engine{Workers: c.Workers, Log: c.Log}
	final, stats, err := eng.Run(ctx, plan, part.New)
	sum.Stats = stats
	if err != nil {
		return sum, err
	}

	if err := c.persist(ctx, batch.ID, final, &sum); err != nil {
		return sum, err
	}
	return sum, nil
}

// readAll decodes and normalizes every row sequentially. Row order is the
// file's order; later phases rely on it for stable in-batch dedup.
func (c *Coordinator) readAll(ctx context.Context, reader *importer.RowReader, norm *importer.Normalizer, sum *Summary) ([]model.Transaction, error) {
	var candidates []model.Transaction
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, rowNum, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			sum.RowCount++
			c.recordMalformed(sum, err, rowNum)
			continue
		}
		sum.RowCount++
		txn, err := norm.Row(rowNum, rec)
		if err != nil {
			c.recordMalformed(sum, err, rowNum)
			continue
		}
		candidates = append(candidates, txn)
		if c.ProgressEvery > 0 && sum.RowCount%c.ProgressEvery == 0 {
			c.progress(*sum, 0, len(candidates))
		}
	}
	return candidates, nil
}

func (c *Coordinator) recordMalformed(sum *Summary, err error, rowNum int) {
	sum.Malformed++
	var mre *importer.MalformedRowError
	if !errors.As(err, &mre) {
		mre = &importer.MalformedRowError{Row: rowNum, Reason: err.Error()}
	}
	if len(sum.RowErrors) < malformedSampleCap {
		sum.RowErrors = append(sum.RowErrors, mre)
	}
	c.Log.Debug().Int("row", mre.Row).Str("field", mre.Field).Str("reason", mre.Reason).Msg("malformed row skipped")
}

// persist commits accepted transactions as whole chunks. A producer feeds a
// bounded channel and this goroutine is the only writer; chunks already
// committed stay committed, the failing chunk rolls back as a unit.
func (c *Coordinator) persist(ctx context.Context, batchID string, txns []model.Transaction, sum *Summary) error {
	chunk := c.ChunkSize
	if chunk < 1 {
		chunk = 500
	}

	// local cancel releases the producer if a commit fails partway
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks := make(chan []model.Transaction, persistQueueDepth)
	go func() {
		defer close(chunks)
		for i := 0; i < len(txns); i += chunk {
			end := i + chunk
			if end > len(txns) {
				end = len(txns)
			}
			select {
			case chunks <- txns[i:end]:
			case <-ctx.Done():
				return
			}
		}
	}()

	for batch := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Store.CommitBatch(ctx, batch); err != nil {
			return &PersistenceFailure{BatchID: batchID, Committed: sum.Accepted, Err: err}
		}
		sum.Accepted += len(batch)
		c.progress(*sum, sum.RowCount, sum.Accepted)
	}
	return ctx.Err()
}

// ApplyRules runs the current rule set over already-stored transactions.
// With dryRun set nothing is written; the stats report what would change.
func (c *Coordinator) ApplyRules(ctx context.Context, txns []model.Transaction, dryRun bool) ([]model.Transaction, rules.Stats, error) {
	ruleList, err := c.Rules.ListRules(ctx)
	if err != nil {
		return nil, rules.Stats{}, fmt.Errorf("load rules: %w", err)
	}
	plan := rules.Compile(ruleList)

	eng := rules.Engine{Workers: c.Workers, Log: c.Log}
	final, stats, err := eng.Run(ctx, plan, txns)
	if err != nil {
		return nil, stats, err
	}
	if dryRun {
		return final, stats, nil
	}

	changed := make([]model.Transaction, 0, stats.Affected)
	for i := range final {
		if !equalRuleFields(txns[i], final[i]) {
			changed = append(changed, final[i])
		}
	}
	if err := c.Updater.ApplyRuleResults(ctx, changed); err != nil {
		return nil, stats, fmt.Errorf("write rule results: %w", err)
	}
	return final, stats, nil
}

func equalRuleFields(a, b model.Transaction) bool {
	if (a.CategoryID == nil) != (b.CategoryID == nil) {
		return false
	}
	if a.CategoryID != nil && *a.CategoryID != *b.CategoryID {
		return false
	}
	if a.Payee != b.Payee || a.Flagged != b.Flagged || len(a.Tags) != len(b.Tags) {
		return false
	}
	return true
}

func (c *Coordinator) progress(sum Summary, total, accepted int) {
	if c.OnProgress == nil {
		return
	}
	c.OnProgress(Progress{
		Processed: sum.RowCount,
		Total:     total,
		Accepted:  accepted,
		Duplicate: sum.Duplicates,
		Errors:    sum.Malformed,
	})
}
