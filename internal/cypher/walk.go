package cypher

import "fmt"

// Visitor receives expressions during a walk. Enter is called before an
// expression's branches are walked and Exit after.
type Visitor interface {
	Enter(expr Expr)
	Exit(expr Expr)
	Done() bool
	Error() error
}

// WalkCursor tracks the branches of one expression during a depth-first walk.
type WalkCursor[E any] struct {
	Expression  E
	Branches    []E
	BranchIndex int
}

// IsFirstVisit reports whether no branch has been taken yet.
func (s *WalkCursor[E]) IsFirstVisit() bool {
	return s.BranchIndex == 0
}

// HasNext reports whether branches remain.
func (s *WalkCursor[E]) HasNext() bool {
	return s.BranchIndex < len(s.Branches)
}

// NextBranch returns the next branch and advances the cursor.
func (s *WalkCursor[E]) NextBranch() E {
	next := s.Branches[s.BranchIndex]
	s.BranchIndex++
	return next
}

// Walk visits expr and its sub-expressions depth first without recursion.
//
// Subquery expressions (Exists, Count) and the WHERE of a ListPredicate are
// not descended into: they have their own scope and are handled by the
// visitor on Enter.
func Walk(expr Expr, visitor Visitor) error {
	if expr == nil {
		return nil
	}

	root, err := newExprCursor(expr)
	if err != nil {
		return err
	}
	stack := []*WalkCursor[Expr]{root}

	for len(stack) > 0 && !visitor.Done() {
		top := stack[len(stack)-1]

		if top.IsFirstVisit() {
			visitor.Enter(top.Expression)
		}

		if top.HasNext() {
			cursor, err := newExprCursor(top.NextBranch())
			if err != nil {
				return err
			}
			stack = append(stack, cursor)
		} else {
			visitor.Exit(top.Expression)
			stack = stack[:len(stack)-1]
		}
	}

	return visitor.Error()
}

func newExprCursor(expr Expr) (*WalkCursor[Expr], error) {
	cursor := &WalkCursor[Expr]{Expression: expr}

	switch e := expr.(type) {
	case Variable, Param, Literal, Star, Exists, Count:
		return cursor, nil
	case HasLabels:
		cursor.Branches = []Expr{e.Subject}
	case Property:
		cursor.Branches = []Expr{e.Subject}
	case Binary:
		cursor.Branches = []Expr{e.Left, e.Right}
	case IsNull:
		cursor.Branches = []Expr{e.Expr}
	case Not:
		cursor.Branches = []Expr{e.Expr}
	case And:
		cursor.Branches = append(cursor.Branches, e.Exprs...)
	case Or:
		cursor.Branches = append(cursor.Branches, e.Exprs...)
	case Func:
		cursor.Branches = append(cursor.Branches, e.Args...)
	case ListPredicate:
		cursor.Branches = []Expr{e.List}
	case MapProjection:
		cursor.Branches = append(cursor.Branches, e.Subject)
		for _, item := range e.Items {
			if item.Value != nil {
				cursor.Branches = append(cursor.Branches, item.Value)
			}
		}
	case MapLiteral:
		for _, item := range e.Items {
			cursor.Branches = append(cursor.Branches, item.Value)
		}
	case ListLiteral:
		cursor.Branches = append(cursor.Branches, e.Items...)
	default:
		return nil, fmt.Errorf("unable to walk expression type %T", expr)
	}

	for _, branch := range cursor.Branches {
		if branch == nil {
			return nil, fmt.Errorf("nil branch in expression %T", expr)
		}
	}
	return cursor, nil
}

// refCollector gathers the free variables of an expression.
type refCollector struct {
	refs []Variable
	seen map[Variable]bool
	err  error
}

func (c *refCollector) add(v Variable) {
	if !c.seen[v] {
		c.seen[v] = true
		c.refs = append(c.refs, v)
	}
}

func (c *refCollector) Enter(expr Expr) {
	switch e := expr.(type) {
	case Variable:
		c.add(e)
	case Exists:
		c.subquery(e.Query)
	case Count:
		c.subquery(e.Query)
	case ListPredicate:
		inner, err := References(e.Where)
		if err != nil && c.err == nil {
			c.err = err
		}
		for _, v := range inner {
			if v != e.Var {
				c.add(v)
			}
		}
	}
}

// subquery records the declared outer variables of an EXISTS / COUNT body.
// A body that failed to build fails the walk.
func (c *refCollector) subquery(q *Query) {
	if q == nil {
		c.err = fmt.Errorf("subquery expression without a body")
		return
	}
	if err := q.Err(); err != nil {
		c.err = err
		return
	}
	for _, v := range q.Imports() {
		c.add(v)
	}
}

func (c *refCollector) Exit(Expr)    {}
func (c *refCollector) Done() bool   { return c.err != nil }
func (c *refCollector) Error() error { return c.err }

// References returns the variables an expression reads from its enclosing
// scope, in first-seen order.
func References(expr Expr) ([]Variable, error) {
	c := &refCollector{seen: make(map[Variable]bool)}
	if err := Walk(expr, c); err != nil {
		return nil, err
	}
	return c.refs, nil
}
