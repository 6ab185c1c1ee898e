package queryir

import "fmt"

// ValidationResult contains the structural warnings found in a tree.
type ValidationResult struct {
	Warnings []string
}

// Clean reports whether no warnings were found.
func (r ValidationResult) Clean() bool {
	return len(r.Warnings) == 0
}

// Validate checks a planned tree for constructs that compile but are likely
// mistakes. It never modifies the tree.
func Validate(n Node) ValidationResult {
	v := &validator{warnings: []string{}}
	Walk(n, func(node Node) bool {
		v.check(node)
		return true
	})
	return ValidationResult{Warnings: v.warnings}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) check(n Node) {
	switch node := n.(type) {
	case *RelationshipSelection:
		v.checkPaging(node.Key, node.Relationship.Many, node.Sort, node.Page)
	case *PolymorphicSelection:
		v.checkPaging(node.Key, node.Relationship.Many, node.Sort, node.Page)
	case *ConnectionSelection:
		v.checkPaging(node.Key, true, node.Sort, node.Page)
		if node.Edges == nil && node.Page != nil {
			v.addWarning("%s: pagination without edges only affects totalCount materialization", node.Key)
		}
	case *ReadOperation:
		v.checkPaging(node.Key, true, node.Sort, node.Page)
	case *Pagination:
		if node.Limit != nil && *node.Limit == 0 {
			v.addWarning("limit 0 returns no rows")
		}
	case *AuthorizationFilter:
		if node.Predicate == nil {
			v.addWarning("%s %s authorization on %s has no predicate", node.Position, node.Operation, node.Entity)
		}
	case *LogicalFilter:
		if node.Op == LogicalNot && len(node.Filters) != 1 {
			v.addWarning("NOT with %d operands", len(node.Filters))
		}
	case *UpdateInput:
		if len(node.Properties) == 0 && len(node.Relationships) == 0 {
			v.addWarning("update of %s changes nothing", node.Entity.Name)
		}
	}
}

func (v *validator) checkPaging(key string, many bool, sort []*Sort, page *Pagination) {
	if page == nil {
		return
	}
	if !many {
		v.addWarning("%s: pagination on a to-one relationship has no effect", key)
		return
	}
	if len(sort) == 0 {
		v.addWarning("%s: paginated without sort; row order is not guaranteed", key)
	}
}
