package rules

import (
	"strings"

	"github.com/finch-money/finch/internal/model"
)

// ExecutionResult is the outcome of applying one matched rule's actions.
type ExecutionResult struct {
	Transaction     model.Transaction
	Stop            bool
	Applied         []Action
	CategoryChanged bool
	TagsAdded       int
	PayeeChanged    bool
}

// Execute applies the rule's actions in list order to a copy of the
// transaction. Actions are idempotent: applying set-category(X) twice yields
// the same result as once, so re-running rules over already-categorized
// transactions is safe. Conflicting actions apply in order, last one wins.
func Execute(r CompiledRule, txn model.Transaction) ExecutionResult {
	out := ExecutionResult{Transaction: txn.Clone(), Stop: r.Stop}
	work := &out.Transaction

	for _, a := range r.Actions {
		switch a.Kind {
		case SetCategory:
			category := strings.TrimSpace(a.Value)
			if work.CategoryID == nil || *work.CategoryID != category {
				work.CategoryID = &category
				out.CategoryChanged = true
			}
		case AddTag:
			tag := strings.TrimSpace(a.Value)
			if tag != "" && !work.HasTag(tag) {
				work.Tags = append(work.Tags, tag)
				out.TagsAdded++
			}
		case RenamePayee:
			payee := strings.TrimSpace(a.Value)
			if work.Payee != payee {
				work.Payee = payee
				out.PayeeChanged = true
			}
		case SetFlag:
			work.Flagged = true
		case StopProcessing:
			out.Stop = true
		}
		out.Applied = append(out.Applied, a)
	}
	return out
}
