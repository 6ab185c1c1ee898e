package queryir

// Node is any IR node.
type Node interface {
	// Children returns the direct child nodes in evaluation order.
	Children() []Node
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children() {
		Walk(child, fn)
	}
}

// nodes accumulates child lists without nil entries.
type nodes []Node

func (ns nodes) filter(f Filter) nodes {
	if f == nil {
		return ns
	}
	return append(ns, f)
}

func (ns nodes) auth(auth []*AuthorizationFilter) nodes {
	for _, a := range auth {
		ns = append(ns, a)
	}
	return ns
}

func (ns nodes) selections(sels []Selection) nodes {
	for _, s := range sels {
		ns = append(ns, s)
	}
	return ns
}

func (ns nodes) sort(sort []*Sort) nodes {
	for _, s := range sort {
		ns = append(ns, s)
	}
	return ns
}

func (ns nodes) page(p *Pagination) nodes {
	if p == nil {
		return ns
	}
	return append(ns, p)
}

// append adds n unless it is a nil pointer of one of the optional child
// types.
func (ns nodes) append(n Node) nodes {
	switch v := n.(type) {
	case nil:
		return ns
	case *CreateInput:
		if v == nil {
			return ns
		}
	case *UpdateInput:
		if v == nil {
			return ns
		}
	}
	return append(ns, n)
}

func (ns nodes) response(r *MutationResponse) nodes {
	if r == nil {
		return ns
	}
	return ns.selections(r.Selections)
}
