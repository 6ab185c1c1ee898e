package cypher

import (
	"errors"
	"fmt"
	"slices"
)

// Phase is the position of the current query part in the clause sequence.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseMatching
	PhaseFiltering
	PhaseMutating
	PhaseProjecting
	PhaseSerialized
)

var phaseNames = map[Phase]string{
	PhaseEmpty:      "empty",
	PhaseMatching:   "matching",
	PhaseFiltering:  "filtering",
	PhaseMutating:   "mutating",
	PhaseProjecting: "projecting",
	PhaseSerialized: "serialized",
}

func (p Phase) String() string {
	return phaseNames[p]
}

// Sentinel errors reported by Query.Err and Build. Use errors.Is.
var (
	ErrUnboundVariable = errors.New("unbound variable")
	ErrRedeclared      = errors.New("variable already bound")
	ErrPhase           = errors.New("clause not allowed in this phase")
	ErrAnchor          = errors.New("invalid anchor")
	ErrUnion           = errors.New("union branches differ")
)

type queryKind int

const (
	kindStatement queryKind = iota // top-level statement
	kindSubquery                   // CALL { ... } body
	kindInner                      // EXISTS { ... } / COUNT { ... } body
)

// Query is a clause tree under construction.
//
// Append methods never return errors. The first failure is kept and reported
// by Err and Build; once a query has failed, further appends are ignored.
type Query struct {
	kind     queryKind
	imports  []Variable
	clauses  []Clause
	branches []*Query

	scope   map[Variable]bool
	phase   Phase
	returns []Variable
	err     error
}

// NewQuery starts a top-level statement with an empty scope.
func NewQuery() *Query {
	return &Query{kind: kindStatement, scope: make(map[Variable]bool)}
}

// NewSubquery starts the body of a CALL subquery importing the given
// variables. Imports are printed as the leading WITH of the body.
func NewSubquery(imports ...Variable) *Query {
	q := &Query{kind: kindSubquery, scope: make(map[Variable]bool)}
	q.imports = slices.Clone(imports)
	for _, v := range imports {
		q.scope[v] = true
	}
	if len(imports) > 0 {
		q.phase = PhaseMatching
	}
	return q
}

// NewInnerQuery starts the body of an EXISTS or COUNT subquery. outer lists
// the enclosing variables the body refers to; nothing else from the
// enclosing scope is visible.
func NewInnerQuery(outer ...Variable) *Query {
	q := &Query{kind: kindInner, scope: make(map[Variable]bool)}
	q.imports = slices.Clone(outer)
	for _, v := range outer {
		q.scope[v] = true
	}
	return q
}

// UnionOf combines CALL bodies into a single UNION body. Every branch must
// return the same names in the same order.
func UnionOf(branches ...*Query) *Query {
	q := &Query{kind: kindSubquery, scope: make(map[Variable]bool), phase: PhaseProjecting}
	if len(branches) == 0 {
		q.err = fmt.Errorf("%w: no branches", ErrUnion)
		return q
	}
	q.branches = branches
	q.returns = slices.Clone(branches[0].returns)
	for i, b := range branches {
		if b.err != nil {
			q.err = fmt.Errorf("union branch %d: %w", i, b.err)
			return q
		}
		if b.kind != kindSubquery || len(b.branches) > 0 {
			q.err = fmt.Errorf("%w: branch %d is not a plain subquery body", ErrUnion, i)
			return q
		}
		if !slices.Equal(b.returns, q.returns) {
			q.err = fmt.Errorf("%w: branch %d returns %v, branch 0 returns %v", ErrUnion, i, b.returns, q.returns)
			return q
		}
		for _, v := range b.imports {
			if !slices.Contains(q.imports, v) {
				q.imports = append(q.imports, v)
			}
		}
	}
	return q
}

// Err returns the first construction error, if any.
func (q *Query) Err() error {
	return q.err
}

// Imports returns the variables this query reads from its enclosing scope.
func (q *Query) Imports() []Variable {
	return q.imports
}

// Returns returns the names produced by the final RETURN.
func (q *Query) Returns() []Variable {
	return q.returns
}

// Phase returns the phase of the current query part.
func (q *Query) Phase() Phase {
	return q.phase
}

// Bound reports whether v is visible at the end of the clause sequence.
func (q *Query) Bound(v Variable) bool {
	return q.scope[v]
}

// Clauses returns the appended clauses in order.
func (q *Query) Clauses() []Clause {
	return q.clauses
}

// Branches returns the UNION branches of a body built with UnionOf.
func (q *Query) Branches() []*Query {
	return q.branches
}

func (q *Query) fail(format string, args ...any) {
	if q.err == nil {
		q.err = fmt.Errorf(format, args...)
	}
}

// usable reports whether appending may proceed and records a phase error
// otherwise.
func (q *Query) usable(clause string) bool {
	if q.err != nil {
		return false
	}
	if len(q.branches) > 0 {
		q.fail("%w: %s appended to a UNION body", ErrPhase, clause)
		return false
	}
	if q.phase >= PhaseProjecting {
		q.fail("%w: %s after %s", ErrPhase, clause, q.phase)
		return false
	}
	return true
}

// requireBound checks that every variable an expression reads is in scope.
func (q *Query) requireBound(clause string, scope map[Variable]bool, exprs ...Expr) bool {
	for _, e := range exprs {
		refs, err := References(e)
		if err != nil {
			q.fail("%s: %w", clause, err)
			return false
		}
		for _, v := range refs {
			if !scope[v] {
				q.fail("%w: %s references %s", ErrUnboundVariable, clause, v)
				return false
			}
		}
	}
	return true
}

func (q *Query) append(c Clause, vars []Variable) Anchor {
	q.clauses = append(q.clauses, c)
	return Anchor{query: q, index: len(q.clauses) - 1, vars: vars}
}

func (q *Query) bindPatterns(patterns []Pattern) []Variable {
	var vars []Variable
	for _, p := range patterns {
		for _, v := range p.variables() {
			q.scope[v] = true
			if !slices.Contains(vars, v) {
				vars = append(vars, v)
			}
		}
	}
	return vars
}

func (q *Query) match(optional bool, where Expr, patterns []Pattern) Anchor {
	clause := "MATCH"
	if optional {
		clause = "OPTIONAL MATCH"
	}
	if !q.usable(clause) {
		return Anchor{}
	}
	if q.phase == PhaseMutating {
		q.fail("%w: %s after a write clause needs WITH", ErrPhase, clause)
		return Anchor{}
	}
	if len(patterns) == 0 {
		q.fail("%s: no patterns", clause)
		return Anchor{}
	}
	vars := q.bindPatterns(patterns)
	if !q.requireBound(clause+" WHERE", q.scope, where) {
		return Anchor{}
	}
	q.phase = PhaseMatching
	if where != nil {
		q.phase = PhaseFiltering
	}
	return q.append(&Match{Optional: optional, Patterns: patterns, Where: where}, vars)
}

// Match appends MATCH patterns with an optional WHERE (nil for none).
func (q *Query) Match(where Expr, patterns ...Pattern) Anchor {
	return q.match(false, where, patterns)
}

// OptionalMatch appends OPTIONAL MATCH patterns with an optional WHERE.
func (q *Query) OptionalMatch(where Expr, patterns ...Pattern) Anchor {
	return q.match(true, where, patterns)
}

// Where adds pred to the WHERE of the last MATCH, WITH or procedure call,
// combining with AND when one is already present.
func (q *Query) Where(pred Expr) {
	if pred == nil || !q.usable("WHERE") {
		return
	}
	if !q.requireBound("WHERE", q.scope, pred) {
		return
	}
	if len(q.clauses) == 0 {
		q.fail("%w: WHERE without a preceding clause", ErrPhase)
		return
	}
	switch c := q.clauses[len(q.clauses)-1].(type) {
	case *Match:
		c.Where = AndOf(c.Where, pred)
	case *With:
		c.Where = AndOf(c.Where, pred)
	case *CallProcedure:
		c.Where = AndOf(c.Where, pred)
	default:
		q.fail("%w: WHERE cannot follow %T", ErrPhase, c)
		return
	}
	q.phase = PhaseFiltering
}

// With appends a WITH projection and opens a new query part.
//
// The scope after WITH is exactly the projected aliases, or unchanged for
// WITH *. The clause's WHERE sees the new scope; ORDER BY sees both.
func (q *Query) With(w *With) {
	if !q.usable("WITH") {
		return
	}
	if !w.Star && len(w.Items) == 0 {
		q.fail("WITH: no items")
		return
	}
	for _, item := range w.Items {
		if !q.requireBound("WITH", q.scope, item.Expr) {
			return
		}
	}

	next := make(map[Variable]bool)
	if w.Star {
		for v := range q.scope {
			next[v] = true
		}
	}
	for _, item := range w.Items {
		next[item.Alias] = true
	}

	both := make(map[Variable]bool, len(next)+len(q.scope))
	for v := range q.scope {
		both[v] = true
	}
	for v := range next {
		both[v] = true
	}
	for _, o := range w.OrderBy {
		if !q.requireBound("WITH ORDER BY", both, o.Expr) {
			return
		}
	}
	if !q.requireBound("WITH", q.scope, w.Skip, w.Limit) {
		return
	}
	if !q.requireBound("WITH WHERE", next, w.Where) {
		return
	}

	q.scope = next
	q.phase = PhaseMatching
	if w.Where != nil {
		q.phase = PhaseFiltering
	}
	q.append(w, nil)
}

// WithVars is shorthand for WITH a, b, c.
func (q *Query) WithVars(vars ...Variable) {
	items := make([]Item, len(vars))
	for i, v := range vars {
		items[i] = Pass(v)
	}
	q.With(&With{Items: items})
}

// Unwind appends UNWIND expr AS v.
func (q *Query) Unwind(expr Expr, v Variable) {
	if !q.usable("UNWIND") {
		return
	}
	if q.phase == PhaseMutating {
		q.fail("%w: UNWIND after a write clause needs WITH", ErrPhase)
		return
	}
	if !q.requireBound("UNWIND", q.scope, expr) {
		return
	}
	if q.scope[v] {
		q.fail("%w: UNWIND AS %s", ErrRedeclared, v)
		return
	}
	q.scope[v] = true
	if q.phase == PhaseEmpty {
		q.phase = PhaseMatching
	}
	q.append(&Unwind{Expr: expr, As: v}, []Variable{v})
}

// Call appends CALL { body }. The body's imports must be in scope here and
// its returned names must not be.
func (q *Query) Call(body *Query) Anchor {
	if !q.usable("CALL") {
		return Anchor{}
	}
	if body.err != nil {
		q.fail("CALL: %w", body.err)
		return Anchor{}
	}
	if body.kind != kindSubquery {
		q.fail("%w: CALL body must be created with NewSubquery or UnionOf", ErrPhase)
		return Anchor{}
	}
	for _, v := range body.imports {
		if !q.scope[v] {
			q.fail("%w: CALL imports %s", ErrUnboundVariable, v)
			return Anchor{}
		}
	}
	for _, v := range body.returns {
		if q.scope[v] {
			q.fail("%w: CALL returns %s", ErrRedeclared, v)
			return Anchor{}
		}
	}
	for _, v := range body.returns {
		q.scope[v] = true
	}
	if q.phase == PhaseEmpty {
		q.phase = PhaseMatching
	}
	if body.writes() {
		q.phase = PhaseMutating
	}
	return q.append(&Call{Body: body}, slices.Clone(body.returns))
}

// CallProcedure appends a procedure call. Yielded names must be unbound.
func (q *Query) CallProcedure(p *CallProcedure) {
	if !q.usable("CALL " + p.Name) {
		return
	}
	if q.phase == PhaseMutating {
		q.fail("%w: procedure call after a write clause needs WITH", ErrPhase)
		return
	}
	if !q.requireBound("CALL "+p.Name, q.scope, p.Args...) {
		return
	}
	var vars []Variable
	for _, y := range p.Yield {
		if q.scope[y.As] {
			q.fail("%w: YIELD %s AS %s", ErrRedeclared, y.Column, y.As)
			return
		}
		q.scope[y.As] = true
		vars = append(vars, y.As)
	}
	if !q.requireBound("CALL "+p.Name+" WHERE", q.scope, p.Where) {
		return
	}
	q.phase = PhaseMatching
	if p.Where != nil {
		q.phase = PhaseFiltering
	}
	q.append(p, vars)
}

// Create appends CREATE pattern. Variables already in scope are reused;
// new ones are bound.
func (q *Query) Create(p Pattern) Anchor {
	if !q.usable("CREATE") {
		return Anchor{}
	}
	vars := q.bindPatterns([]Pattern{p})
	q.phase = PhaseMutating
	return q.append(&Create{Pattern: p}, vars)
}

// Merge appends MERGE pattern.
func (q *Query) Merge(p Pattern) Anchor {
	if !q.usable("MERGE") {
		return Anchor{}
	}
	vars := q.bindPatterns([]Pattern{p})
	q.phase = PhaseMutating
	return q.append(&Merge{Pattern: p}, vars)
}

// Set appends SET assignments.
func (q *Query) Set(items ...SetItem) Anchor {
	if !q.usable("SET") {
		return Anchor{}
	}
	if len(items) == 0 {
		q.fail("SET: no items")
		return Anchor{}
	}
	var vars []Variable
	for _, item := range items {
		if !q.requireBound("SET", q.scope, item.Target, item.Value) {
			return Anchor{}
		}
		if v, ok := item.Target.Subject.(Variable); ok && !slices.Contains(vars, v) {
			vars = append(vars, v)
		}
	}
	q.phase = PhaseMutating
	return q.append(&Set{Items: items}, vars)
}

// Delete appends DELETE, or DETACH DELETE when detach is set.
func (q *Query) Delete(detach bool, vars ...Variable) Anchor {
	if !q.usable("DELETE") {
		return Anchor{}
	}
	for _, v := range vars {
		if !q.scope[v] {
			q.fail("%w: DELETE %s", ErrUnboundVariable, v)
			return Anchor{}
		}
	}
	q.phase = PhaseMutating
	return q.append(&Delete{Detach: detach, Vars: vars}, slices.Clone(vars))
}

// GuardBefore appends a guard evaluated before anything that follows. It is
// only accepted while matching or filtering, ahead of any write in the
// current part.
func (q *Query) GuardBefore(pred Expr, message string) {
	if !q.usable("guard") {
		return
	}
	if q.phase != PhaseMatching && q.phase != PhaseFiltering {
		q.fail("%w: guard-before while %s", ErrPhase, q.phase)
		return
	}
	if !q.requireBound("guard", q.scope, pred) {
		return
	}
	q.append(&Guard{Predicate: pred, Message: message}, nil)
}

// GuardAfter appends a guard that checks the result of the anchored clause.
// The anchor must come from an append on this query.
func (q *Query) GuardAfter(anchor Anchor, pred Expr, message string) {
	if !q.usable("guard") {
		return
	}
	if anchor.query != q || anchor.index >= len(q.clauses) {
		q.fail("%w: guard-after anchored outside this query", ErrAnchor)
		return
	}
	if !q.requireBound("guard", q.scope, pred) {
		return
	}
	afterWrite := q.phase == PhaseMutating
	q.append(&Guard{Predicate: pred, Message: message, afterWrite: afterWrite}, nil)
	if afterWrite {
		// the guard opens a new query part with WITH *
		q.phase = PhaseMatching
	}
}

// Raw appends verbatim text. Refs must be in scope; Returns become the
// query's result names.
func (q *Query) Raw(r *Raw) {
	if !q.usable("raw statement") {
		return
	}
	for _, v := range r.Refs {
		if !q.scope[v] {
			q.fail("%w: raw statement references %s", ErrUnboundVariable, v)
			return
		}
	}
	if len(r.Returns) == 0 {
		q.fail("raw statement must return at least one column")
		return
	}
	q.returns = slices.Clone(r.Returns)
	q.phase = PhaseProjecting
	q.append(r, nil)
}

// Return appends the final RETURN.
func (q *Query) Return(r *Return) {
	if !q.usable("RETURN") {
		return
	}
	if !r.Star && len(r.Items) == 0 {
		q.fail("RETURN: no items")
		return
	}
	for _, item := range r.Items {
		if !q.requireBound("RETURN", q.scope, item.Expr) {
			return
		}
	}
	both := make(map[Variable]bool, len(q.scope)+len(r.Items))
	for v := range q.scope {
		both[v] = true
	}
	for _, item := range r.Items {
		both[item.Alias] = true
	}
	for _, o := range r.OrderBy {
		if !q.requireBound("RETURN ORDER BY", both, o.Expr) {
			return
		}
	}
	if !q.requireBound("RETURN", q.scope, r.Skip, r.Limit) {
		return
	}

	var names []Variable
	if r.Star {
		names = q.sortedScope()
	}
	for _, item := range r.Items {
		names = append(names, item.Alias)
	}
	q.returns = names
	q.phase = PhaseProjecting
	q.append(r, nil)
}

// ReturnItems is shorthand for RETURN with plain items.
func (q *Query) ReturnItems(items ...Item) {
	q.Return(&Return{Items: items})
}

func (q *Query) sortedScope() []Variable {
	names := make([]Variable, 0, len(q.scope))
	for v := range q.scope {
		names = append(names, v)
	}
	slices.Sort(names)
	return names
}

// writes reports whether the query contains an updating clause at any depth
// of CALL nesting.
func (q *Query) writes() bool {
	for _, b := range q.branches {
		if b.writes() {
			return true
		}
	}
	for _, c := range q.clauses {
		switch c := c.(type) {
		case *Create, *Merge, *Set, *Delete:
			return true
		case *Call:
			if c.Body.writes() {
				return true
			}
		}
	}
	return false
}
