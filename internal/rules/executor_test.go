package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteAppliesActionsInOrder(t *testing.T) {
	r := validRule("r", 1)
	r.Actions = []Action{
		{Kind: SetCategory, Value: "food"},
		{Kind: SetCategory, Value: "travel"}, // last one wins
		{Kind: AddTag, Value: "reviewed"},
		{Kind: RenamePayee, Value: "Cafe"},
		{Kind: SetFlag},
	}
	res := Execute(compileOne(t, r), txnForEval())

	require.NotNil(t, res.Transaction.CategoryID)
	assert.Equal(t, "travel", *res.Transaction.CategoryID)
	assert.Equal(t, []string{"reviewed"}, res.Transaction.Tags)
	assert.Equal(t, "Cafe", res.Transaction.Payee)
	assert.True(t, res.Transaction.Flagged)
	assert.True(t, res.CategoryChanged)
	assert.Equal(t, 1, res.TagsAdded)
	assert.True(t, res.PayeeChanged)
	assert.False(t, res.Stop)
}

func TestExecuteDoesNotMutateInput(t *testing.T) {
	r := validRule("r", 1)
	r.Actions = []Action{{Kind: AddTag, Value: "x"}, {Kind: SetFlag}}
	in := txnForEval()
	in.Tags = []string{"existing"}

	res := Execute(compileOne(t, r), in)

	assert.Equal(t, []string{"existing"}, in.Tags)
	assert.False(t, in.Flagged)
	assert.Equal(t, []string{"existing", "x"}, res.Transaction.Tags)
}

func TestExecuteIsIdempotent(t *testing.T) {
	r := validRule("r", 1)
	r.Actions = []Action{
		{Kind: SetCategory, Value: "food"},
		{Kind: AddTag, Value: "Subscription"},
	}
	cr := compileOne(t, r)

	once := Execute(cr, txnForEval())
	twice := Execute(cr, once.Transaction)

	assert.Equal(t, once.Transaction.Tags, twice.Transaction.Tags)
	assert.Equal(t, *once.Transaction.CategoryID, *twice.Transaction.CategoryID)
	assert.False(t, twice.CategoryChanged, "second application changes nothing")
	assert.Zero(t, twice.TagsAdded)
}

func TestExecuteAddTagIsCaseInsensitive(t *testing.T) {
	r := validRule("r", 1)
	r.Actions = []Action{{Kind: AddTag, Value: "SUBSCRIPTION"}}
	in := txnForEval()
	in.Tags = []string{"subscription"}

	res := Execute(compileOne(t, r), in)
	assert.Len(t, res.Transaction.Tags, 1)
	assert.Zero(t, res.TagsAdded)
}

func TestExecuteStop(t *testing.T) {
	r := validRule("r", 1)
	r.Stop = true
	res := Execute(compileOne(t, r), txnForEval())
	assert.True(t, res.Stop)

	r2 := validRule("r2", 1)
	r2.Actions = []Action{{Kind: AddTag, Value: "x"}, {Kind: StopProcessing}}
	res = Execute(compileOne(t, r2), txnForEval())
	assert.True(t, res.Stop)
}
