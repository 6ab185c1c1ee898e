package cypher

// Direction is the direction of a relationship hop, read from the start node.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Undirected
)

// NodePattern is (var:Label1:Label2). Var may be empty for an anonymous node.
type NodePattern struct {
	Var    Variable
	Labels []string
}

// Node builds a node pattern.
func Node(v Variable, labels ...string) NodePattern {
	return NodePattern{Var: v, Labels: labels}
}

// RelPattern is -[var:TYPE]->. Var may be empty.
type RelPattern struct {
	Var       Variable
	Type      string
	Direction Direction
}

// Hop is a relationship followed by the node it reaches.
type Hop struct {
	Rel  RelPattern
	Node NodePattern
}

// Pattern is a path pattern: a start node followed by zero or more hops.
type Pattern struct {
	Start NodePattern
	Hops  []Hop
}

// Path builds a pattern starting at start.
func Path(start NodePattern) Pattern {
	return Pattern{Start: start}
}

// Related appends a hop to the pattern and returns the extended pattern.
func (p Pattern) Related(rel RelPattern, node NodePattern) Pattern {
	hops := make([]Hop, len(p.Hops), len(p.Hops)+1)
	copy(hops, p.Hops)
	p.Hops = append(hops, Hop{Rel: rel, Node: node})
	return p
}

// variables returns every named variable in the pattern in order.
func (p Pattern) variables() []Variable {
	var vars []Variable
	if p.Start.Var != "" {
		vars = append(vars, p.Start.Var)
	}
	for _, hop := range p.Hops {
		if hop.Rel.Var != "" {
			vars = append(vars, hop.Rel.Var)
		}
		if hop.Node.Var != "" {
			vars = append(vars, hop.Node.Var)
		}
	}
	return vars
}
