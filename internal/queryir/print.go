package queryir

import (
	"fmt"
	"sort"
	"strings"
)

// Print renders a tree as indented text, one node per line.
func Print(n Node) string {
	var b strings.Builder
	printNode(&b, n, 0)
	return b.String()
}

func printNode(b *strings.Builder, n Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(describe(n))
	b.WriteByte('\n')
	for _, child := range n.Children() {
		printNode(b, child, depth+1)
	}
}

func describe(n Node) string {
	switch node := n.(type) {
	case *ReadOperation:
		s := fmt.Sprintf("Read %s (%s)", node.Key, node.Entity.Name)
		if node.Fulltext != nil {
			s += " fulltext " + node.Fulltext.Index.Name
		}
		return s
	case *ConnectionOperation:
		return "Connection " + node.Selection.Key
	case *AggregateOperation:
		return "Aggregate " + node.Selection.Key
	case *CreateOperation:
		return fmt.Sprintf("Create %s (%s) x%d", node.Key, node.Entity.Name, len(node.Inputs))
	case *UpdateOperation:
		return fmt.Sprintf("Update %s (%s)", node.Key, node.Entity.Name)
	case *DeleteOperation:
		return fmt.Sprintf("Delete %s (%s)", node.Key, node.Entity.Name)

	case *PropertyFilter:
		return fmt.Sprintf("Property %s %s %s", node.Attribute.Name, node.Operator, formatValue(node.Value))
	case *LogicalFilter:
		return node.Op.String()
	case *RelationshipFilter:
		kind := "Relationship"
		if node.Connection {
			kind = "Connection"
		}
		return fmt.Sprintf("%s %s %s %s", kind, node.Relationship.Name, node.Quantifier, targetNames(node.Targets))
	case *ExistenceFilter:
		if node.Exists {
			return "Exists " + node.Relationship.Name
		}
		return "NotExists " + node.Relationship.Name
	case *CountFilter:
		return fmt.Sprintf("Count %s %s %s", node.Relationship.Name, node.Operator, formatValue(node.Value))
	case *CustomFieldFilter:
		if node.Target != nil {
			return fmt.Sprintf("Computed %s %s", node.Field.Name, node.Quantifier)
		}
		return fmt.Sprintf("Computed %s %s %s", node.Field.Name, node.Operator, formatValue(node.Value))
	case *ClaimFilter:
		return fmt.Sprintf("Claim %s %s %s", node.Path, node.Operator, formatValue(node.Value))
	case *AuthenticatedFilter:
		return "Authenticated"
	case *AuthorizationFilter:
		return fmt.Sprintf("Authorization %s %s %s", node.Position, node.Operation, node.Entity)

	case *AttributeSelection:
		return "Attribute " + keyed(node.Key, node.Attribute.Name)
	case *TypenameSelection:
		return fmt.Sprintf("Typename %s = %s", node.Key, node.Type)
	case *RelationshipSelection:
		return fmt.Sprintf("Relationship %s -> %s", keyed(node.Key, node.Relationship.Name), node.Target.Name)
	case *ConnectionSelection:
		if node.Relationship == nil {
			return fmt.Sprintf("ConnectionSelection %s -> %s", node.Key, node.Target.Name)
		}
		return fmt.Sprintf("ConnectionSelection %s -> %s", keyed(node.Key, node.Relationship.Name), node.Target.Name)
	case *PolymorphicSelection:
		return fmt.Sprintf("Polymorphic %s -> %s", keyed(node.Key, node.Relationship.Name), node.Type)
	case *PolymorphicBranch:
		return "Branch " + node.Target.Name
	case *AggregationSelection:
		return fmt.Sprintf("Aggregation %s -> %s", node.Key, node.Target.Name)
	case *CustomFieldSelection:
		return "Computed " + keyed(node.Key, node.Field.Name)
	case *Sort:
		dir := "ASC"
		if node.Descending {
			dir = "DESC"
		}
		if node.Edge {
			return fmt.Sprintf("Sort edge.%s %s", node.Attribute.Name, dir)
		}
		return fmt.Sprintf("Sort %s %s", node.Attribute.Name, dir)
	case *Pagination:
		if node.Limit == nil {
			return fmt.Sprintf("Page offset=%d", node.Offset)
		}
		return fmt.Sprintf("Page offset=%d limit=%d", node.Offset, *node.Limit)

	case *CreateInput:
		return fmt.Sprintf("CreateInput %s %s", node.Entity.Name, writeNames(node.Properties))
	case *UpdateInput:
		return fmt.Sprintf("UpdateInput %s %s", node.Entity.Name, writeNames(node.Properties))
	case *RelationshipWrite:
		return fmt.Sprintf("RelationshipWrite %s -> %s", node.Relationship.Name, node.Target.Name)
	case *NestedCreate:
		return "NestedCreate " + writeNames(node.Edge)
	case *Connect:
		return "Connect " + writeNames(node.Edge)
	case *Disconnect:
		return "Disconnect"
	case *NestedUpdate:
		return "NestedUpdate " + writeNames(node.Edge)
	case *NestedDelete:
		return fmt.Sprintf("NestedDelete %s -> %s", node.Relationship.Name, node.Target.Name)
	default:
		return fmt.Sprintf("%T", n)
	}
}

func keyed(key, name string) string {
	if key == name {
		return name
	}
	return key + ":" + name
}

func targetNames(targets []RelationshipTarget) string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Entity.Name
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func writeNames(writes []PropertyWrite) string {
	parts := make([]string, len(writes))
	for i, w := range writes {
		parts[i] = w.Attribute.Name
		if w.Op != WriteSet {
			parts[i] += "_" + w.Op.String()
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue renders a filter value deterministically.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	case ClaimRef:
		return "$jwt." + x.Path
	case DistanceValue:
		return fmt.Sprintf("distance(%s, %s)", formatValue(x.Point), formatValue(x.Distance))
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + formatValue(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(x)
	}
}
