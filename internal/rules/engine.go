package rules

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/finch-money/finch/internal/model"
)

// ExecutionRecord is the transient audit trail of one rule against one
// transaction. Used for statistics and diagnostics, never for correctness.
type ExecutionRecord struct {
	RuleID          string
	TransactionID   string
	Matched         bool
	Applied         []Action
	Err             string
	At              time.Time
	CategoryChanged bool
	TagsAdded       int
	PayeeChanged    bool
}

// Failure records one rule/transaction pair that raised an error. The batch
// always continues past it.
type Failure struct {
	RuleID        string
	TransactionID string
	Reason        string
}

// Sample is a small before/after excerpt attached to a rule outcome.
type Sample struct {
	TransactionID string
	Date          string
	Amount        string
	Description   string
	OldCategory   string
	NewCategory   string
}

// RuleOutcome aggregates what one rule did across the whole batch.
type RuleOutcome struct {
	RuleID          string
	Label           string
	Matched         int
	CategoryChanges int
	TagChanges      int
	PayeeChanges    int
	Samples         []Sample
}

// Stats summarizes one engine run.
type Stats struct {
	Transactions int
	Affected     int
	RulesFired   int
	Elapsed      time.Duration
	Failures     []Failure
	Excluded     []*ValidationError
	Outcomes     []RuleOutcome
}

// Engine drives the compiled plan over a batch of transactions. Transactions
// are independent and processed across a worker pool; rules within one
// transaction run strictly in plan order.
type Engine struct {
	Workers int
	Log     zerolog.Logger
}

type txnResult struct {
	index    int
	txn      model.Transaction
	records  []ExecutionRecord
	affected bool
}

// Run processes every transaction through the plan and returns the new
// transaction states plus run statistics. The input slice is not mutated.
// Cancelling the context stops scheduling promptly; transactions already
// picked up by a worker still finish.
func (e *Engine) Run(ctx context.Context, plan Plan, txns []model.Transaction) ([]model.Transaction, Stats, error) {
	start := time.Now()
	workers := e.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(txns) && len(txns) > 0 {
		workers = len(txns)
	}

	stats := Stats{Excluded: plan.Excluded}
	stats.Outcomes = make([]RuleOutcome, len(plan.Rules))
	outcomeIdx := make(map[string]int, len(plan.Rules))
	for i, r := range plan.Rules {
		stats.Outcomes[i] = RuleOutcome{RuleID: r.ID, Label: r.Label}
		outcomeIdx[r.ID] = i
	}

	out := make([]model.Transaction, len(txns))

	jobs := make(chan int)
	results := make(chan txnResult)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				final, records := e.processOne(plan, txns[idx])
				results <- txnResult{
					index:    idx,
					txn:      final,
					records:  records,
					affected: changed(txns[idx], final),
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// producer; stops scheduling on cancellation
	canceled := false
	go func() {
		defer close(jobs)
		for i := range txns {
			select {
			case jobs <- i:
			case <-ctx.Done():
				canceled = true
				return
			}
		}
	}()

	// single-writer aggregation: this loop alone touches the counters
	for res := range results {
		out[res.index] = res.txn
		stats.Transactions++
		if res.affected {
			stats.Affected++
		}
		for _, rec := range res.records {
			if rec.Err != "" {
				stats.Failures = append(stats.Failures, Failure{
					RuleID:        rec.RuleID,
					TransactionID: rec.TransactionID,
					Reason:        rec.Err,
				})
				e.Log.Warn().
					Str("rule_id", rec.RuleID).
					Str("transaction_id", rec.TransactionID).
					Str("reason", rec.Err).
					Msg("rule execution failed")
				continue
			}
			if !rec.Matched {
				continue
			}
			stats.RulesFired++
			i, ok := outcomeIdx[rec.RuleID]
			if !ok {
				continue
			}
			o := &stats.Outcomes[i]
			o.Matched++
			if rec.CategoryChanged {
				o.CategoryChanges++
			}
			o.TagChanges += rec.TagsAdded
			if rec.PayeeChanged {
				o.PayeeChanges++
			}
			if len(o.Samples) < 3 && (rec.CategoryChanged || rec.TagsAdded > 0) {
				o.Samples = append(o.Samples, sampleFor(txns[res.index], res.txn))
			}
		}
	}

	stats.Elapsed = time.Since(start)
	e.Log.Debug().
		Int("transactions", stats.Transactions).
		Int("affected", stats.Affected).
		Int("rules_fired", stats.RulesFired).
		Int("failures", len(stats.Failures)).
		Dur("elapsed", stats.Elapsed).
		Msg("rule engine run complete")

	if canceled {
		return out, stats, ctx.Err()
	}
	return out, stats, nil
}

// processOne runs the ordered rule list against a single transaction.
// Rule order inside one transaction is a correctness requirement, not an
// optimization hint. A panic in one rule is captured as a per-rule failure
// and processing continues with the next rule.
func (e *Engine) processOne(plan Plan, txn model.Transaction) (model.Transaction, []ExecutionRecord) {
	work := txn.Clone()
	records := make([]ExecutionRecord, 0, len(plan.Rules))

	for i := range plan.Rules {
		rule := plan.Rules[i]
		rec := ExecutionRecord{RuleID: rule.ID, TransactionID: txn.ID, At: time.Now().UTC()}
		stop := false

		func() {
			defer func() {
				if r := recover(); r != nil {
					rec.Err = fmt.Sprintf("panic: %v", r)
				}
			}()
			matched, _ := Evaluate(rule, work)
			rec.Matched = matched
			if !matched {
				return
			}
			res := Execute(rule, work)
			work = res.Transaction
			rec.Applied = res.Applied
			rec.CategoryChanged = res.CategoryChanged
			rec.TagsAdded = res.TagsAdded
			rec.PayeeChanged = res.PayeeChanged
			stop = res.Stop
		}()

		records = append(records, rec)
		if stop {
			break
		}
	}
	return work, records
}

func changed(before, after model.Transaction) bool {
	if (before.CategoryID == nil) != (after.CategoryID == nil) {
		return true
	}
	if before.CategoryID != nil && *before.CategoryID != *after.CategoryID {
		return true
	}
	return len(before.Tags) != len(after.Tags) ||
		before.Payee != after.Payee ||
		before.Flagged != after.Flagged
}

func sampleFor(before, after model.Transaction) Sample {
	return Sample{
		TransactionID: before.ID,
		Date:          before.Date.Format(time.DateOnly),
		Amount:        before.Amount.String(),
		Description:   before.Description,
		OldCategory:   categoryOrEmpty(before.CategoryID),
		NewCategory:   categoryOrEmpty(after.CategoryID),
	}
}

func categoryOrEmpty(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
