package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finch-money/finch/internal/model"
)

func txnForEval() model.Transaction {
	return model.Transaction{
		ID:          "t1",
		AccountID:   "acct-1",
		Date:        time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("-42.50"),
		Payee:       "Coffee Shop",
		Description: "COFFEE SHOP 42 MELBOURNE",
	}
}

func compileOne(t *testing.T, r Rule) CompiledRule {
	t.Helper()
	plan := Compile([]Rule{r})
	require.Empty(t, plan.Excluded)
	require.Len(t, plan.Rules, 1)
	return plan.Rules[0]
}

func TestEvaluateEmptyConditionsNeverMatches(t *testing.T) {
	r := validRule("r", 1)
	r.Conditions = nil
	matched, results := Evaluate(compileOne(t, r), txnForEval())
	assert.False(t, matched)
	assert.Empty(t, results)
}

func TestEvaluateAllRequiresEvery(t *testing.T) {
	r := validRule("r", 1)
	r.Combinator = All
	r.Conditions = []Condition{
		{Field: FieldDescription, Comparator: Contains, Value: "coffee"},
		{Field: FieldAmount, Comparator: LessThan, Value: "0"},
	}
	matched, results := Evaluate(compileOne(t, r), txnForEval())
	assert.True(t, matched)
	require.Len(t, results, 2)

	r.Conditions[1].Value = "-100"
	matched, results = Evaluate(compileOne(t, r), txnForEval())
	assert.False(t, matched)
	assert.True(t, results[0].Matched, "every condition is still evaluated")
	assert.False(t, results[1].Matched)
}

func TestEvaluateAnyRequiresOne(t *testing.T) {
	r := validRule("r", 1)
	r.Combinator = Any
	r.Conditions = []Condition{
		{Field: FieldDescription, Comparator: Contains, Value: "nomatch"},
		{Field: FieldPayee, Comparator: Equals, Value: "coffee shop"},
	}
	matched, _ := Evaluate(compileOne(t, r), txnForEval())
	assert.True(t, matched)

	r.Conditions[1].Value = "bakery"
	matched, _ = Evaluate(compileOne(t, r), txnForEval())
	assert.False(t, matched)
}

func TestEvaluateStringComparators(t *testing.T) {
	txn := txnForEval()
	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"contains is case-insensitive", Condition{Field: FieldDescription, Comparator: Contains, Value: "Coffee Shop"}, true},
		{"equals full value", Condition{Field: FieldPayee, Comparator: Equals, Value: "COFFEE SHOP"}, true},
		{"equals is not substring", Condition{Field: FieldPayee, Comparator: Equals, Value: "coffee"}, false},
		{"not-equals", Condition{Field: FieldPayee, Comparator: NotEquals, Value: "bakery"}, true},
		{"matches regex", Condition{Field: FieldDescription, Comparator: Matches, Value: `shop\s+\d+`}, true},
		{"category is-empty when unset", Condition{Field: FieldCategory, Comparator: IsEmpty}, true},
		{"empty contains never matches", Condition{Field: FieldDescription, Comparator: Contains, Value: ""}, false},
		{"empty matches never matches", Condition{Field: FieldDescription, Comparator: Matches, Value: ""}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRule("r", 1)
			r.Conditions = []Condition{tc.cond}
			matched, _ := Evaluate(compileOne(t, r), txn)
			assert.Equal(t, tc.want, matched)
		})
	}
}

func TestEvaluateAmountUsesExactDecimal(t *testing.T) {
	txn := txnForEval()
	txn.Amount = decimal.RequireFromString("-42.50")

	r := validRule("r", 1)
	r.Conditions = []Condition{{Field: FieldAmount, Comparator: Equals, Value: "-42.5"}}
	matched, _ := Evaluate(compileOne(t, r), txn)
	assert.True(t, matched, "-42.50 and -42.5 are the same value")

	r.Conditions = []Condition{{Field: FieldAmount, Comparator: GreaterThan, Value: "-50"}}
	matched, _ = Evaluate(compileOne(t, r), txn)
	assert.True(t, matched)
}

func TestEvaluateDateComparators(t *testing.T) {
	txn := txnForEval() // 2026-03-14
	cases := []struct {
		cmp   Comparator
		value string
		want  bool
	}{
		{Equals, "2026-03-14", true},
		{OnOrAfter, "2026-03-14", true},
		{OnOrAfter, "2026-03-15", false},
		{OnOrBefore, "2026-03-14", true},
		{OnOrBefore, "2026-03-13", false},
	}
	for _, tc := range cases {
		r := validRule("r", 1)
		r.Conditions = []Condition{{Field: FieldDate, Comparator: tc.cmp, Value: tc.value}}
		matched, _ := Evaluate(compileOne(t, r), txn)
		assert.Equal(t, tc.want, matched, "%s %s", tc.cmp, tc.value)
	}
}
