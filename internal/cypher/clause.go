package cypher

// Clause is one clause of a query.
//
// This is a sealed interface - only types in this package implement it.
// Clauses are appended through Query methods, which check scoping and phase.
type Clause interface {
	clauseNode()
}

// Item is a projected expression with an optional alias. An Item whose Expr
// is the Variable named by Alias prints without "AS".
type Item struct {
	Expr  Expr
	Alias Variable
}

// As builds an aliased projection item.
func As(e Expr, alias Variable) Item {
	return Item{Expr: e, Alias: alias}
}

// Pass builds an item that carries a variable through unchanged.
func Pass(v Variable) Item {
	return Item{Expr: v, Alias: v}
}

// Order is one ORDER BY key.
type Order struct {
	Expr       Expr
	Descending bool
}

// Match is MATCH or OPTIONAL MATCH with an optional WHERE.
type Match struct {
	Optional bool
	Patterns []Pattern
	Where    Expr
}

func (*Match) clauseNode() {}

// With is a WITH projection. Star keeps every bound variable.
type With struct {
	Star     bool
	Distinct bool
	Items    []Item
	Where    Expr
	OrderBy  []Order
	Skip     Expr
	Limit    Expr
}

func (*With) clauseNode() {}

// Unwind is UNWIND expr AS var.
type Unwind struct {
	Expr Expr
	As   Variable
}

func (*Unwind) clauseNode() {}

// Call is a CALL { ... } subquery. The body prints its imports as a leading
// WITH.
type Call struct {
	Body *Query
}

func (*Call) clauseNode() {}

// YieldItem names a procedure output column.
type YieldItem struct {
	Column string
	As     Variable
}

// CallProcedure is CALL proc(args) YIELD col AS var WHERE pred.
type CallProcedure struct {
	Name  string
	Args  []Expr
	Yield []YieldItem
	Where Expr
}

func (*CallProcedure) clauseNode() {}

// Create is CREATE pattern.
type Create struct {
	Pattern Pattern
}

func (*Create) clauseNode() {}

// Merge is MERGE pattern.
type Merge struct {
	Pattern Pattern
}

func (*Merge) clauseNode() {}

// SetItem is one SET assignment.
type SetItem struct {
	Target Property
	Value  Expr
}

// Set is SET a = b, ...
type Set struct {
	Items []SetItem
}

func (*Set) clauseNode() {}

// Delete is [DETACH] DELETE vars.
type Delete struct {
	Detach bool
	Vars   []Variable
}

func (*Delete) clauseNode() {}

// Guard aborts the statement when Predicate is false. It is printed as a
// call to apoc.util.validate with the negated predicate.
type Guard struct {
	Predicate Expr
	Message   string

	afterWrite bool
}

func (*Guard) clauseNode() {}

// Raw is verbatim statement text supplied by the data model (computed
// fields). Refs lists the variables it reads. The text must end in a RETURN
// whose columns are listed in Returns.
type Raw struct {
	Text    string
	Refs    []Variable
	Returns []Variable
}

func (*Raw) clauseNode() {}

// Return is the final projection of a query part.
type Return struct {
	Star     bool
	Distinct bool
	Items    []Item
	OrderBy  []Order
	Skip     Expr
	Limit    Expr
}

func (*Return) clauseNode() {}

// Anchor identifies a clause that has been appended to a Query. It is only
// produced by Query append methods and is the required argument of
// GuardAfter.
type Anchor struct {
	query *Query
	index int
	vars  []Variable
}

// Valid reports whether the anchor refers to an appended clause.
func (a Anchor) Valid() bool {
	return a.query != nil
}

// Vars returns the variables bound or written by the anchored clause.
func (a Anchor) Vars() []Variable {
	return a.vars
}
