package cypher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const indentUnit = "    "

// Build serializes a top-level query. Parameter names are assigned in order
// of first appearance in the text, so identical trees always produce
// identical output. Only parameters referenced by the text are returned.
func (q *Query) Build(params *Params) (string, []NamedParam, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.kind != kindStatement {
		return "", nil, fmt.Errorf("%w: only a top-level query can be built", ErrPhase)
	}
	if len(q.clauses) == 0 {
		return "", nil, fmt.Errorf("%w: empty query", ErrPhase)
	}
	if params == nil {
		params = NewParams()
	}

	p := &printer{params: params, names: make(map[int]string)}
	p.query(q, 0)
	if p.err != nil {
		return "", nil, p.err
	}
	q.phase = PhaseSerialized
	return strings.Join(p.lines, "\n"), p.named, nil
}

type printer struct {
	params *Params
	names  map[int]string
	named  []NamedParam
	lines  []string
	err    error
}

func (p *printer) line(depth int, text string) {
	p.lines = append(p.lines, strings.Repeat(indentUnit, depth)+text)
}

func (p *printer) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *printer) param(param Param) string {
	if name, ok := p.names[param.id]; ok {
		return "$" + name
	}
	if param.id < 0 || param.id >= p.params.Len() {
		p.fail(fmt.Errorf("parameter %d not in table", param.id))
		return "$?"
	}
	name := "param" + strconv.Itoa(len(p.named))
	p.names[param.id] = name
	p.named = append(p.named, NamedParam{Name: name, Value: p.params.Value(param)})
	return "$" + name
}

func (p *printer) query(q *Query, depth int) {
	if q.err != nil {
		p.fail(q.err)
		return
	}
	if len(q.branches) > 0 {
		for i, b := range q.branches {
			if i > 0 {
				p.line(depth, "UNION")
			}
			p.query(b, depth)
		}
		return
	}
	if q.kind == kindSubquery && len(q.imports) > 0 {
		p.line(depth, "WITH "+joinVars(q.imports))
	}
	for _, c := range q.clauses {
		p.clause(c, depth)
	}
}

func (p *printer) clause(c Clause, depth int) {
	switch c := c.(type) {
	case *Match:
		kw := "MATCH "
		if c.Optional {
			kw = "OPTIONAL MATCH "
		}
		parts := make([]string, len(c.Patterns))
		for i, pat := range c.Patterns {
			parts[i] = printPattern(pat)
		}
		p.line(depth, kw+strings.Join(parts, ", "))
		p.where(c.Where, depth)
	case *With:
		p.line(depth, "WITH "+p.projection(c.Star, c.Distinct, c.Items, depth))
		p.paging(c.OrderBy, c.Skip, c.Limit, depth)
		p.where(c.Where, depth)
	case *Unwind:
		p.line(depth, "UNWIND "+p.expr(c.Expr, depth)+" AS "+escapeName(string(c.As)))
	case *Call:
		p.line(depth, "CALL {")
		p.query(c.Body, depth+1)
		p.line(depth, "}")
	case *CallProcedure:
		args := make([]string, len(c.Args))
		for i, a := range c.Args {
			args[i] = p.expr(a, depth)
		}
		text := "CALL " + c.Name + "(" + strings.Join(args, ", ") + ")"
		if len(c.Yield) > 0 {
			yields := make([]string, len(c.Yield))
			for i, y := range c.Yield {
				yields[i] = y.Column
				if string(y.As) != y.Column {
					yields[i] += " AS " + escapeName(string(y.As))
				}
			}
			text += " YIELD " + strings.Join(yields, ", ")
		}
		p.line(depth, text)
		p.where(c.Where, depth)
	case *Create:
		p.line(depth, "CREATE "+printPattern(c.Pattern))
	case *Merge:
		p.line(depth, "MERGE "+printPattern(c.Pattern))
	case *Set:
		parts := make([]string, len(c.Items))
		for i, item := range c.Items {
			parts[i] = p.expr(item.Target, depth) + " = " + p.expr(item.Value, depth)
		}
		p.line(depth, "SET "+strings.Join(parts, ", "))
	case *Delete:
		kw := "DELETE "
		if c.Detach {
			kw = "DETACH DELETE "
		}
		p.line(depth, kw+joinVars(c.Vars))
	case *Guard:
		if c.afterWrite {
			p.line(depth, "WITH *")
		}
		p.line(depth, "CALL apoc.util.validate(NOT ("+p.expr(c.Predicate, depth)+"), "+quote(c.Message)+", [0])")
	case *Raw:
		for _, l := range strings.Split(strings.TrimSpace(c.Text), "\n") {
			p.line(depth, strings.TrimSpace(l))
		}
	case *Return:
		p.line(depth, "RETURN "+p.projection(c.Star, c.Distinct, c.Items, depth))
		p.paging(c.OrderBy, c.Skip, c.Limit, depth)
	default:
		p.fail(fmt.Errorf("unsupported clause type: %T", c))
	}
}

func (p *printer) where(pred Expr, depth int) {
	if pred != nil {
		p.line(depth, "WHERE "+p.expr(pred, depth))
	}
}

func (p *printer) projection(star, distinct bool, items []Item, depth int) string {
	var parts []string
	if star {
		parts = append(parts, "*")
	}
	for _, item := range items {
		if v, ok := item.Expr.(Variable); ok && v == item.Alias {
			parts = append(parts, escapeName(string(v)))
			continue
		}
		parts = append(parts, p.expr(item.Expr, depth)+" AS "+escapeName(string(item.Alias)))
	}
	text := strings.Join(parts, ", ")
	if distinct {
		text = "DISTINCT " + text
	}
	return text
}

func (p *printer) paging(order []Order, skip, limit Expr, depth int) {
	if len(order) > 0 {
		keys := make([]string, len(order))
		for i, o := range order {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			keys[i] = p.expr(o.Expr, depth) + " " + dir
		}
		p.line(depth, "ORDER BY "+strings.Join(keys, ", "))
	}
	if skip != nil {
		p.line(depth, "SKIP "+p.expr(skip, depth))
	}
	if limit != nil {
		p.line(depth, "LIMIT "+p.expr(limit, depth))
	}
}

// expr renders an expression. depth is the indentation of the line the
// expression starts on; subquery bodies are indented one level deeper.
func (p *printer) expr(e Expr, depth int) string {
	switch e := e.(type) {
	case Variable:
		return escapeName(string(e))
	case Param:
		return p.param(e)
	case Property:
		return p.operand(e.Subject, depth) + "." + escapeName(e.Key)
	case Literal:
		return p.literal(e.Value)
	case Binary:
		return p.operand(e.Left, depth) + " " + e.Op.String() + " " + p.operand(e.Right, depth)
	case IsNull:
		if e.Negated {
			return p.operand(e.Expr, depth) + " IS NOT NULL"
		}
		return p.operand(e.Expr, depth) + " IS NULL"
	case Not:
		return "NOT (" + p.expr(e.Expr, depth) + ")"
	case And:
		return p.junction(e.Exprs, " AND ", depth)
	case Or:
		return p.junction(e.Exprs, " OR ", depth)
	case Func:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = p.expr(a, depth)
		}
		prefix := ""
		if e.Distinct {
			prefix = "DISTINCT "
		}
		return e.Name + "(" + prefix + strings.Join(args, ", ") + ")"
	case ListPredicate:
		return listQuantifierText[e.Quantifier] + "(" + escapeName(string(e.Var)) + " IN " +
			p.expr(e.List, depth) + " WHERE " + p.expr(e.Where, depth) + ")"
	case Exists:
		return "EXISTS " + p.body(e.Query, depth)
	case Count:
		return "COUNT " + p.body(e.Query, depth)
	case MapProjection:
		items := make([]string, len(e.Items))
		for i, item := range e.Items {
			if item.Value == nil {
				items[i] = "." + escapeName(item.Key)
				continue
			}
			items[i] = escapeName(item.Key) + ": " + p.expr(item.Value, depth)
		}
		return escapeName(string(e.Subject)) + " { " + strings.Join(items, ", ") + " }"
	case MapLiteral:
		if len(e.Items) == 0 {
			return "{}"
		}
		items := make([]string, len(e.Items))
		for i, item := range e.Items {
			items[i] = escapeName(item.Key) + ": " + p.expr(item.Value, depth)
		}
		return "{ " + strings.Join(items, ", ") + " }"
	case ListLiteral:
		items := make([]string, len(e.Items))
		for i, item := range e.Items {
			items[i] = p.expr(item, depth)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case Star:
		return "*"
	case HasLabels:
		return escapeName(string(e.Subject)) + labelText(e.Labels)
	case nil:
		p.fail(fmt.Errorf("nil expression"))
		return ""
	default:
		p.fail(fmt.Errorf("unsupported expression type: %T", e))
		return ""
	}
}

// operand renders an operand of an infix or postfix operator, adding
// parentheses where the operand is itself an operator expression.
func (p *printer) operand(e Expr, depth int) string {
	switch e.(type) {
	case Binary, IsNull:
		return "(" + p.expr(e, depth) + ")"
	}
	return p.expr(e, depth)
}

func (p *printer) junction(exprs []Expr, sep string, depth int) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = p.expr(e, depth)
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// body renders an EXISTS / COUNT body as a block that closes at depth.
func (p *printer) body(q *Query, depth int) string {
	saved := p.lines
	p.lines = nil
	p.query(q, depth+1)
	inner := p.lines
	p.lines = saved
	return "{\n" + strings.Join(inner, "\n") + "\n" + strings.Repeat(indentUnit, depth) + "}"
}

func (p *printer) literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return quote(v)
	default:
		p.fail(fmt.Errorf("unsupported literal type: %T", v))
		return ""
	}
}

func printPattern(pat Pattern) string {
	var b strings.Builder
	b.WriteString(printNode(pat.Start))
	for _, hop := range pat.Hops {
		rel := "[" + escapeOptional(hop.Rel.Var)
		if hop.Rel.Type != "" {
			rel += ":" + escapeName(hop.Rel.Type)
		}
		rel += "]"
		switch hop.Rel.Direction {
		case Outgoing:
			b.WriteString("-" + rel + "->")
		case Incoming:
			b.WriteString("<-" + rel + "-")
		default:
			b.WriteString("-" + rel + "-")
		}
		b.WriteString(printNode(hop.Node))
	}
	return b.String()
}

func printNode(n NodePattern) string {
	return "(" + escapeOptional(n.Var) + labelText(n.Labels) + ")"
}

func labelText(labels []string) string {
	var b strings.Builder
	for _, l := range labels {
		b.WriteString(":" + escapeName(l))
	}
	return b.String()
}

func escapeOptional(v Variable) string {
	if v == "" {
		return ""
	}
	return escapeName(string(v))
}

var plainName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// escapeName backtick-quotes names that are not plain identifiers.
func escapeName(name string) string {
	if plainName.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// quote renders a double-quoted string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

func joinVars(vars []Variable) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = escapeName(string(v))
	}
	return strings.Join(parts, ", ")
}
