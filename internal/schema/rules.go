package schema

import "slices"

// Operation is an operation an authorization rule applies to.
type Operation string

const (
	OpRead               Operation = "READ"
	OpCreate             Operation = "CREATE"
	OpUpdate             Operation = "UPDATE"
	OpDelete             Operation = "DELETE"
	OpCreateRelationship Operation = "CREATE_RELATIONSHIP"
	OpDeleteRelationship Operation = "DELETE_RELATIONSHIP"
)

// AllOperations is the default operation set of a rule.
var AllOperations = []Operation{
	OpRead, OpCreate, OpUpdate, OpDelete, OpCreateRelationship, OpDeleteRelationship,
}

// RuleKind distinguishes filtering rules from validating rules.
type RuleKind string

const (
	// RuleFilter excludes rows the predicate rejects.
	RuleFilter RuleKind = "filter"
	// RuleValidate aborts the statement when the predicate is false.
	RuleValidate RuleKind = "validate"
)

// Timing is when a validate rule is evaluated relative to what it guards.
type Timing string

const (
	TimingBefore Timing = "BEFORE"
	TimingAfter  Timing = "AFTER"
)

// Rule is a declared authorization rule.
type Rule struct {
	Kind       RuleKind
	Operations []Operation
	When       []Timing // validate rules only
	// RequireAuthenticated makes the rule fail for unauthenticated requests.
	RequireAuthenticated bool
	Where                *RuleWhere
}

// Applies reports whether the rule covers op.
func (r Rule) Applies(op Operation) bool {
	return slices.Contains(r.Operations, op)
}

// At reports whether a validate rule is evaluated at timing t.
func (r Rule) At(t Timing) bool {
	return slices.Contains(r.When, t)
}

// RuleWhere is a rule predicate. Node is a where input over the guarded node
// whose values may reference claims as "$jwt.<path>"; JWT is a where input
// over the claims themselves. Every populated part must hold.
type RuleWhere struct {
	Node map[string]any
	JWT  map[string]any
	AND  []*RuleWhere
	OR   []*RuleWhere
	NOT  *RuleWhere
}

// ClaimPrefix marks a rule value that refers to a claim.
const ClaimPrefix = "$jwt."
