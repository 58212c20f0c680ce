package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
)

// ValidationError reports one malformed rule. A malformed rule is excluded
// from the plan and reported; it never aborts compilation of the rest.
type ValidationError struct {
	RuleID string
	Label  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rule %s: %s", e.RuleID, e.Reason)
}

type compiledCondition struct {
	Condition
	needle  string // lowercased value for string comparators
	amount  decimal.Decimal
	date    time.Time
	pattern *regexp.Regexp // nil when the pattern is empty: never matches
}

// CompiledRule is a validated, evaluation-ready rule.
type CompiledRule struct {
	Rule
	conds []compiledCondition
}

// Plan is the compiled evaluation plan for one engine run: enabled rules in
// total order (priority, then ID), plus the rules that failed validation.
type Plan struct {
	Rules    []CompiledRule
	Excluded []*ValidationError
}

var stringComparators = map[Comparator]bool{
	Equals: true, NotEquals: true, Contains: true, Matches: true, IsEmpty: true,
}

var amountComparators = map[Comparator]bool{
	Equals: true, NotEquals: true, GreaterThan: true, LessThan: true,
}

var dateComparators = map[Comparator]bool{
	Equals: true, OnOrAfter: true, OnOrBefore: true,
}

var knownFields = []Field{
	FieldDescription, FieldPayee, FieldAmount, FieldDate, FieldAccount, FieldCategory,
}

var knownComparators = []Comparator{
	Equals, NotEquals, Contains, Matches, GreaterThan, LessThan, OnOrAfter, OnOrBefore, IsEmpty,
}

var knownActionKinds = []ActionKind{
	SetCategory, AddTag, RenamePayee, SetFlag, StopProcessing,
}

// Compile filters to enabled rules, orders them by (priority, id) and
// validates each rule's conditions and actions. Compilation is cheap enough
// to run once per import batch.
func Compile(rules []Rule) Plan {
	plan := Plan{}

	enabled := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		if enabled[i].Priority != enabled[j].Priority {
			return enabled[i].Priority < enabled[j].Priority
		}
		return enabled[i].ID < enabled[j].ID
	})

	for _, r := range enabled {
		compiled, err := compileRule(r)
		if err != nil {
			plan.Excluded = append(plan.Excluded, err)
			continue
		}
		plan.Rules = append(plan.Rules, compiled)
	}
	return plan
}

func compileRule(r Rule) (CompiledRule, *ValidationError) {
	fail := func(format string, args ...any) (CompiledRule, *ValidationError) {
		return CompiledRule{}, &ValidationError{
			RuleID: r.ID,
			Label:  r.Label,
			Reason: fmt.Sprintf(format, args...),
		}
	}

	switch r.Combinator {
	case All, Any:
	case "":
		r.Combinator = All
	default:
		return fail("unknown combinator %q", r.Combinator)
	}

	conds := make([]compiledCondition, 0, len(r.Conditions))
	for i, c := range r.Conditions {
		cc, reason := compileCondition(c)
		if reason != "" {
			return fail("condition %d: %s", i+1, reason)
		}
		conds = append(conds, cc)
	}

	if len(r.Actions) == 0 {
		return fail("rule has no actions")
	}
	for i, a := range r.Actions {
		if reason := validateAction(a); reason != "" {
			return fail("action %d: %s", i+1, reason)
		}
	}

	return CompiledRule{Rule: r, conds: conds}, nil
}

func compileCondition(c Condition) (compiledCondition, string) {
	cc := compiledCondition{Condition: c}
	value := strings.TrimSpace(c.Value)

	switch c.Field {
	case FieldDescription, FieldPayee, FieldAccount, FieldCategory:
		if !stringComparators[c.Comparator] {
			return cc, comparatorReason(c.Comparator, c.Field, "text")
		}
		cc.needle = strings.ToLower(value)
		if c.Comparator == Matches && value != "" {
			re, err := regexp.Compile("(?i)" + value)
			if err != nil {
				return cc, fmt.Sprintf("invalid pattern %q: %v", value, err)
			}
			cc.pattern = re
		}
	case FieldAmount:
		if !amountComparators[c.Comparator] {
			return cc, comparatorReason(c.Comparator, c.Field, "numeric")
		}
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return cc, fmt.Sprintf("invalid amount %q", c.Value)
		}
		cc.amount = amount
	case FieldDate:
		if !dateComparators[c.Comparator] {
			return cc, comparatorReason(c.Comparator, c.Field, "date")
		}
		d, err := time.Parse(time.DateOnly, value)
		if err != nil {
			return cc, fmt.Sprintf("invalid date %q (want YYYY-MM-DD)", c.Value)
		}
		cc.date = d
	default:
		reason := fmt.Sprintf("unknown field %q", c.Field)
		if s := suggestField(string(c.Field)); s != "" {
			reason += fmt.Sprintf(" (did you mean %q?)", s)
		}
		return cc, reason
	}
	return cc, ""
}

func validateAction(a Action) string {
	switch a.Kind {
	case SetCategory, AddTag, RenamePayee:
		if strings.TrimSpace(a.Value) == "" {
			return fmt.Sprintf("%s requires a value", a.Kind)
		}
	case SetFlag, StopProcessing:
	default:
		reason := fmt.Sprintf("unknown action kind %q", a.Kind)
		if s := suggestActionKind(string(a.Kind)); s != "" {
			reason += fmt.Sprintf(" (did you mean %q?)", s)
		}
		return reason
	}
	return ""
}

func comparatorReason(c Comparator, f Field, kind string) string {
	for _, known := range knownComparators {
		if known == c {
			return fmt.Sprintf("comparator %q does not apply to %s field %q", c, kind, f)
		}
	}
	reason := fmt.Sprintf("unknown comparator %q", c)
	if s := suggestComparator(string(c)); s != "" {
		reason += fmt.Sprintf(" (did you mean %q?)", s)
	}
	return reason
}

// suggest* return the closest known name within a small edit distance, so a
// typo in a hand-edited rule produces an actionable validation error.

func suggestField(got string) string {
	names := make([]string, len(knownFields))
	for i, f := range knownFields {
		names[i] = string(f)
	}
	return closest(got, names)
}

func suggestComparator(got string) string {
	names := make([]string, len(knownComparators))
	for i, c := range knownComparators {
		names[i] = string(c)
	}
	return closest(got, names)
}

func suggestActionKind(got string) string {
	names := make([]string, len(knownActionKinds))
	for i, k := range knownActionKinds {
		names[i] = string(k)
	}
	return closest(got, names)
}

func closest(got string, names []string) string {
	got = strings.ToLower(strings.TrimSpace(got))
	best := ""
	bestDist := 4 // anything further than 3 edits is not a typo
	for _, name := range names {
		d := levenshtein.ComputeDistance(got, name)
		if d < bestDist {
			bestDist = d
			best = name
		}
	}
	return best
}
