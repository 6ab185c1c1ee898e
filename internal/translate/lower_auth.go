package translate

import (
	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/queryir"
)

// preAuth returns the PRE filters of auth bound to node. They are ANDed into
// the WHERE of the match they restrict.
func preAuth(auth []*queryir.AuthorizationFilter, node cypher.Variable) []bound {
	var out []bound
	for _, a := range queryir.AuthAt(auth, queryir.PositionPre) {
		out = append(out, bound{a.Predicate, node})
	}
	return out
}

// guards appends a validation call for every filter of auth at pos.
// VALIDATE_BEFORE guards must precede the writes they protect; POST and
// VALIDATE_AFTER guards check the clause at anchor.
func (l *lowerer) guards(q *cypher.Query, anchor cypher.Anchor, node cypher.Variable, auth []*queryir.AuthorizationFilter, pos queryir.Position) error {
	for _, a := range queryir.AuthAt(auth, pos) {
		pred, err := l.filter(q, node, a.Predicate)
		if err != nil {
			return err
		}
		if pred == nil {
			continue
		}
		if pos == queryir.PositionValidateBefore || !anchor.Valid() {
			q.GuardBefore(pred, ForbiddenMessage)
			continue
		}
		q.GuardAfter(anchor, pred, ForbiddenMessage)
	}
	return nil
}

// match restricts the node just matched by q: filters and PRE rules go into
// the WHERE, then POST rules become guards.
func (l *lowerer) match(q *cypher.Query, anchor cypher.Anchor, node cypher.Variable, auth []*queryir.AuthorizationFilter, filters ...bound) error {
	if err := l.where(q, append(filters, preAuth(auth, node)...)...); err != nil {
		return err
	}
	return l.guards(q, anchor, node, auth, queryir.PositionPost)
}
