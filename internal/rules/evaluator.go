package rules

import (
	"strings"

	"github.com/finch-money/finch/internal/model"
)

// ConditionResult records one condition's individual verdict, for diagnostics.
type ConditionResult struct {
	Condition Condition
	Matched   bool
}

// Evaluate decides whether the rule matches the transaction. All conditions
// are evaluated (no short-circuit) so callers get a full per-condition
// breakdown. A rule with no conditions never matches: a rule cannot silently
// apply to everything.
func Evaluate(r CompiledRule, txn model.Transaction) (bool, []ConditionResult) {
	if len(r.conds) == 0 {
		return false, nil
	}

	results := make([]ConditionResult, len(r.conds))
	matchedAll := true
	matchedAny := false
	for i, c := range r.conds {
		ok := matchCondition(c, txn)
		results[i] = ConditionResult{Condition: c.Condition, Matched: ok}
		if ok {
			matchedAny = true
		} else {
			matchedAll = false
		}
	}

	if r.Combinator == Any {
		return matchedAny, results
	}
	return matchedAll, results
}

func matchCondition(c compiledCondition, txn model.Transaction) bool {
	switch c.Field {
	case FieldAmount:
		cmp := txn.Amount.Cmp(c.amount)
		switch c.Comparator {
		case Equals:
			return cmp == 0
		case NotEquals:
			return cmp != 0
		case GreaterThan:
			return cmp > 0
		case LessThan:
			return cmp < 0
		}
		return false
	case FieldDate:
		// calendar dates, never timestamps
		d := model.DateOnly(txn.Date)
		switch c.Comparator {
		case Equals:
			return d.Equal(c.date)
		case OnOrAfter:
			return !d.Before(c.date)
		case OnOrBefore:
			return !d.After(c.date)
		}
		return false
	default:
		return matchString(c, fieldString(c.Field, txn))
	}
}

func matchString(c compiledCondition, value string) bool {
	lower := strings.ToLower(value)
	switch c.Comparator {
	case Equals:
		return lower == c.needle
	case NotEquals:
		return lower != c.needle
	case Contains:
		// an empty pattern never matches, it is not a catch-all
		return c.needle != "" && strings.Contains(lower, c.needle)
	case Matches:
		return c.pattern != nil && c.pattern.MatchString(value)
	case IsEmpty:
		return strings.TrimSpace(value) == ""
	}
	return false
}

func fieldString(f Field, txn model.Transaction) string {
	switch f {
	case FieldDescription:
		return txn.Description
	case FieldPayee:
		return txn.Payee
	case FieldAccount:
		return txn.AccountID
	case FieldCategory:
		if txn.CategoryID == nil {
			return ""
		}
		return *txn.CategoryID
	}
	return ""
}
