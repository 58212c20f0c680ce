package rules

import "context"

// Combinator decides how a rule's conditions combine.
type Combinator string

const (
	All Combinator = "all"
	Any Combinator = "any"
)

// Field names a transaction field a condition can test.
type Field string

const (
	FieldDescription Field = "description"
	FieldPayee       Field = "payee"
	FieldAmount      Field = "amount"
	FieldDate        Field = "date"
	FieldAccount     Field = "account"
	FieldCategory    Field = "category"
)

// Comparator names a predicate over one field.
type Comparator string

const (
	Equals      Comparator = "equals"
	NotEquals   Comparator = "not-equals"
	Contains    Comparator = "contains"
	Matches     Comparator = "matches"
	GreaterThan Comparator = "greater-than"
	LessThan    Comparator = "less-than"
	OnOrAfter   Comparator = "on-or-after"
	OnOrBefore  Comparator = "on-or-before"
	IsEmpty     Comparator = "is-empty"
)

// Condition is a single predicate over one transaction field.
type Condition struct {
	Field      Field      `json:"field"`
	Comparator Comparator `json:"comparator"`
	Value      string     `json:"value,omitempty"`
}

// ActionKind names a mutation a matched rule applies.
type ActionKind string

const (
	SetCategory    ActionKind = "set-category"
	AddTag         ActionKind = "add-tag"
	RenamePayee    ActionKind = "rename-payee"
	SetFlag        ActionKind = "set-flag"
	StopProcessing ActionKind = "stop-processing"
)

// Action is one mutation with its payload.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Value string     `json:"value,omitempty"`
}

// Rule is a named, prioritized bundle of conditions and actions.
// Rules are owned by the user; the engine never mutates them.
type Rule struct {
	ID         string
	Label      string
	Enabled    bool
	Priority   int // lower = evaluated first, ties broken by ID
	Combinator Combinator
	Conditions []Condition
	Actions    []Action
	Stop       bool // stop further rule processing once this rule matches
}

// Source is the external rule store. The engine compiles against a snapshot
// taken at batch start; edits during a running batch do not apply to it.
type Source interface {
	ListRules(ctx context.Context) ([]Rule, error)
	GetRule(ctx context.Context, id string) (*Rule, error)
}
