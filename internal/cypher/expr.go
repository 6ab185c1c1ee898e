package cypher

// Expr is a Cypher expression.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode()
}

// Variable is a bound query variable.
type Variable string

func (Variable) exprNode() {}

// String returns the variable name.
func (v Variable) String() string { return string(v) }

// Param references an entry in a Params table. Its name is assigned at
// serialization time from its id.
type Param struct {
	id int
}

func (Param) exprNode() {}

// ID returns the parameter's position in its table.
func (p Param) ID() int { return p.id }

// Property is a property access: subject.key
type Property struct {
	Subject Expr
	Key     string
}

func (Property) exprNode() {}

// Prop is shorthand for a property access on a variable.
func Prop(v Variable, key string) Property {
	return Property{Subject: v, Key: key}
}

// Literal is an inline constant. Only schema-derived constants (type names,
// fixed messages, small integers used internally) are emitted as literals;
// request values always go through Params.
type Literal struct {
	Value any // nil, bool, int, int64, string
}

func (Literal) exprNode() {}

// BinaryOp enumerates infix operators.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpIn
	OpContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpAdd
	OpSub
)

var binaryOpText = map[BinaryOp]string{
	OpEq:         "=",
	OpNeq:        "<>",
	OpLt:         "<",
	OpLte:        "<=",
	OpGt:         ">",
	OpGte:        ">=",
	OpIn:         "IN",
	OpContains:   "CONTAINS",
	OpStartsWith: "STARTS WITH",
	OpEndsWith:   "ENDS WITH",
	OpMatches:    "=~",
	OpAdd:        "+",
	OpSub:        "-",
}

// String returns the operator as written in Cypher.
func (op BinaryOp) String() string {
	return binaryOpText[op]
}

// Binary is an infix expression: left op right
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (Binary) exprNode() {}

// Eq builds left = right.
func Eq(left, right Expr) Binary {
	return Binary{Op: OpEq, Left: left, Right: right}
}

// IsNull is "expr IS NULL", or "expr IS NOT NULL" when Negated.
type IsNull struct {
	Expr    Expr
	Negated bool
}

func (IsNull) exprNode() {}

// Not negates its operand. It is printed as NOT (expr) and never simplified.
type Not struct {
	Expr Expr
}

func (Not) exprNode() {}

// And is a conjunction. Build it with AndOf.
type And struct {
	Exprs []Expr
}

func (And) exprNode() {}

// Or is a disjunction. Build it with OrOf.
type Or struct {
	Exprs []Expr
}

func (Or) exprNode() {}

// AndOf combines the non-nil expressions with AND. It returns nil when none
// remain and the single expression when only one does.
func AndOf(exprs ...Expr) Expr {
	kept := compact(exprs)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return And{Exprs: kept}
}

// OrOf combines the non-nil expressions with OR, with the same collapsing
// rules as AndOf.
func OrOf(exprs ...Expr) Expr {
	kept := compact(exprs)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return Or{Exprs: kept}
}

func compact(exprs []Expr) []Expr {
	kept := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			kept = append(kept, e)
		}
	}
	return kept
}

// Func is a function call such as count(x) or point.distance(a, b).
type Func struct {
	Name     string
	Args     []Expr
	Distinct bool
}

func (Func) exprNode() {}

// Fn builds a function call.
func Fn(name string, args ...Expr) Func {
	return Func{Name: name, Args: args}
}

// ListQuantifier selects the list predicate function.
type ListQuantifier int

const (
	ListAny ListQuantifier = iota
	ListAll
	ListNone
	ListSingle
)

var listQuantifierText = map[ListQuantifier]string{
	ListAny:    "any",
	ListAll:    "all",
	ListNone:   "none",
	ListSingle: "single",
}

// ListPredicate is a list predicate function: any(x IN list WHERE pred).
// Var is bound only inside Where.
type ListPredicate struct {
	Quantifier ListQuantifier
	Var        Variable
	List       Expr
	Where      Expr
}

func (ListPredicate) exprNode() {}

// Exists is an existential subquery: EXISTS { ... }
type Exists struct {
	Query *Query
}

func (Exists) exprNode() {}

// Count is a counting subquery: COUNT { ... }
type Count struct {
	Query *Query
}

func (Count) exprNode() {}

// MapItem is one entry of a map projection or map literal. A projection
// entry with a nil Value is printed in shorthand form (.key).
type MapItem struct {
	Key   string
	Value Expr
}

// MapProjection projects a node or relationship variable into a map:
// this { .title, actors: var2 }
type MapProjection struct {
	Subject Variable
	Items   []MapItem
}

func (MapProjection) exprNode() {}

// MapLiteral is a literal map: { key: value, ... }
type MapLiteral struct {
	Items []MapItem
}

func (MapLiteral) exprNode() {}

// ListLiteral is a literal list: [a, b]
type ListLiteral struct {
	Items []Expr
}

func (ListLiteral) exprNode() {}

// Star is the "*" argument of count(*).
type Star struct{}

func (Star) exprNode() {}

// HasLabels is a label predicate: this:Movie
type HasLabels struct {
	Subject Variable
	Labels  []string
}

func (HasLabels) exprNode() {}
