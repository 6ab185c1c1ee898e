package queryir

import (
	"fmt"

	"github.com/roach88/cypherc/internal/schema"
)

// Filter is a row predicate.
//
// This is a sealed interface - only types in this package implement it.
type Filter interface {
	Node
	filterNode()
}

// Operator is a comparison operator of a where key suffix.
type Operator int

const (
	OpEq Operator = iota
	OpIn
	OpLt
	OpLte
	OpGt
	OpGte
	OpContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpIncludes
	OpDistanceEq
	OpDistanceLt
	OpDistanceLte
	OpDistanceGt
	OpDistanceGte
)

var operatorSuffix = map[Operator]string{
	OpEq:          "EQ",
	OpIn:          "IN",
	OpLt:          "LT",
	OpLte:         "LTE",
	OpGt:          "GT",
	OpGte:         "GTE",
	OpContains:    "CONTAINS",
	OpStartsWith:  "STARTS_WITH",
	OpEndsWith:    "ENDS_WITH",
	OpMatches:     "MATCHES",
	OpIncludes:    "INCLUDES",
	OpDistanceEq:  "DISTANCE",
	OpDistanceLt:  "DISTANCE_LT",
	OpDistanceLte: "DISTANCE_LTE",
	OpDistanceGt:  "DISTANCE_GT",
	OpDistanceGte: "DISTANCE_GTE",
}

var suffixOperator = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorSuffix))
	for op, s := range operatorSuffix {
		m[s] = op
	}
	return m
}()

// String returns the where key suffix of the operator.
func (op Operator) String() string {
	if s, ok := operatorSuffix[op]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// ParseOperator resolves a where key suffix ("EQ", "STARTS_WITH", ...).
func ParseOperator(suffix string) (Operator, bool) {
	op, ok := suffixOperator[suffix]
	return op, ok
}

// Distance reports whether op compares a point distance.
func (op Operator) Distance() bool {
	return op >= OpDistanceEq && op <= OpDistanceGte
}

// Ordering reports whether op is one of the ordering comparisons.
func (op Operator) Ordering() bool {
	return op >= OpLt && op <= OpGte
}

// Textual reports whether op only applies to strings.
func (op Operator) Textual() bool {
	return op >= OpContains && op <= OpMatches
}

// ClaimRef is a filter value read from the request claims at lowering time.
type ClaimRef struct {
	Path string
}

// DistanceValue is the value of a distance comparison.
type DistanceValue struct {
	Point    map[string]any
	Distance any
}

// PropertyFilter compares an attribute of the current target.
// A nil Value with OpEq means IS NULL.
type PropertyFilter struct {
	Attribute *schema.Attribute
	Operator  Operator
	Value     any // request value, ClaimRef or DistanceValue
}

func (*PropertyFilter) filterNode()      {}
func (*PropertyFilter) Children() []Node { return nil }

// LogicalOp is a boolean connective.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
	LogicalNot
)

func (op LogicalOp) String() string {
	switch op {
	case LogicalAnd:
		return "AND"
	case LogicalOr:
		return "OR"
	case LogicalNot:
		return "NOT"
	default:
		return fmt.Sprintf("LogicalOp(%d)", int(op))
	}
}

// LogicalFilter combines filters. NOT has exactly one operand and is never
// folded into its operand.
type LogicalFilter struct {
	Op      LogicalOp
	Filters []Filter
}

func (*LogicalFilter) filterNode() {}

func (f *LogicalFilter) Children() []Node {
	var ns nodes
	for _, sub := range f.Filters {
		ns = ns.filter(sub)
	}
	return ns
}

// And combines the non-nil filters. It returns nil for none and the filter
// itself for one.
func And(filters ...Filter) Filter {
	return combine(LogicalAnd, filters)
}

// Or combines the non-nil filters with the same collapsing rules as And.
func Or(filters ...Filter) Filter {
	return combine(LogicalOr, filters)
}

// Not negates f.
func Not(f Filter) Filter {
	return &LogicalFilter{Op: LogicalNot, Filters: []Filter{f}}
}

func combine(op LogicalOp, filters []Filter) Filter {
	var kept []Filter
	for _, f := range filters {
		if f != nil {
			kept = append(kept, f)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &LogicalFilter{Op: op, Filters: kept}
}

// Quantifier is a relationship quantifier.
type Quantifier int

const (
	QuantifierSome Quantifier = iota
	QuantifierAll
	QuantifierNone
	QuantifierSingle
)

var quantifierNames = map[Quantifier]string{
	QuantifierSome:   "SOME",
	QuantifierAll:    "ALL",
	QuantifierNone:   "NONE",
	QuantifierSingle: "SINGLE",
}

func (q Quantifier) String() string {
	if s, ok := quantifierNames[q]; ok {
		return s
	}
	return fmt.Sprintf("Quantifier(%d)", int(q))
}

// ParseQuantifier resolves a where key suffix ("ALL", "SOME", ...).
func ParseQuantifier(suffix string) (Quantifier, bool) {
	for q, s := range quantifierNames {
		if s == suffix {
			return q, true
		}
	}
	return 0, false
}

// RelationshipTarget is one concrete type reached by a relationship filter,
// with the node predicate that applies to it.
type RelationshipTarget struct {
	Entity *schema.Entity
	Node   Filter
}

// RelationshipFilter applies a quantifier over related nodes. Targets lists
// one entry per concrete type in declared order; Edge filters relationship
// properties (connection filters only).
type RelationshipFilter struct {
	Relationship *schema.Relationship
	Quantifier   Quantifier
	Targets      []RelationshipTarget
	Edge         Filter
	Connection   bool
}

func (*RelationshipFilter) filterNode() {}

func (f *RelationshipFilter) Children() []Node {
	var ns nodes
	for _, t := range f.Targets {
		ns = ns.filter(t.Node)
	}
	return ns.filter(f.Edge)
}

// ExistenceFilter checks whether any related node exists.
type ExistenceFilter struct {
	Relationship *schema.Relationship
	Targets      []*schema.Entity
	Exists       bool
}

func (*ExistenceFilter) filterNode()      {}
func (*ExistenceFilter) Children() []Node { return nil }

// CountFilter compares the number of related nodes.
type CountFilter struct {
	Relationship *schema.Relationship
	Targets      []*schema.Entity
	Operator     Operator // OpEq or an ordering operator
	Value        any
}

func (*CountFilter) filterNode()      {}
func (*CountFilter) Children() []Node { return nil }

// CustomFieldFilter filters on the rows of a computed field. Entity-typed
// fields use Quantifier and Node; scalar fields use Operator and Value.
type CustomFieldFilter struct {
	Field      *schema.CustomField
	Target     *schema.Entity
	Quantifier Quantifier
	Node       Filter
	Operator   Operator
	Value      any
}

func (*CustomFieldFilter) filterNode() {}

func (f *CustomFieldFilter) Children() []Node {
	return nodes(nil).filter(f.Node)
}

// ClaimFilter compares a claim of the request with a constant.
type ClaimFilter struct {
	Path     string
	Operator Operator
	Value    any
}

func (*ClaimFilter) filterNode()      {}
func (*ClaimFilter) Children() []Node { return nil }

// AuthenticatedFilter holds when the request carries claims.
type AuthenticatedFilter struct{}

func (*AuthenticatedFilter) filterNode()      {}
func (*AuthenticatedFilter) Children() []Node { return nil }

// Position is where an authorization predicate is placed.
type Position int

const (
	// PositionPre is ANDed into the row filter of the guarded match.
	PositionPre Position = iota
	// PositionPost is a guard after a read match.
	PositionPost
	// PositionValidateBefore is a guard ahead of a write.
	PositionValidateBefore
	// PositionValidateAfter is a guard after a write, anchored to it.
	PositionValidateAfter
)

var positionNames = map[Position]string{
	PositionPre:            "PRE",
	PositionPost:           "POST",
	PositionValidateBefore: "VALIDATE_BEFORE",
	PositionValidateAfter:  "VALIDATE_AFTER",
}

func (p Position) String() string {
	if s, ok := positionNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

// AuthorizationFilter is the combined predicate of the rules that apply to
// one entity, operation and position. Rules are OR-combined in Predicate.
type AuthorizationFilter struct {
	Position  Position
	Operation schema.Operation
	Entity    string
	Predicate Filter
}

func (a *AuthorizationFilter) Children() []Node {
	return nodes(nil).filter(a.Predicate)
}

// AuthAt returns the filters at position p.
func AuthAt(auth []*AuthorizationFilter, p Position) []*AuthorizationFilter {
	var out []*AuthorizationFilter
	for _, a := range auth {
		if a.Position == p {
			out = append(out, a)
		}
	}
	return out
}
