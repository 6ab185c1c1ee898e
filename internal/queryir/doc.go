// Package queryir provides the intermediate representation (IR) of a planned
// request: what to match, filter, authorize, project and write, with every
// name already resolved against the data model.
//
// ARCHITECTURE:
//
// The IR sits between request planning and Cypher lowering:
//
//	[request.Operation] → plan → [queryir.Operation] → lower → [cypher.Query]
//
// Planning does all structural validation (unknown fields, operators,
// ambiguous writes). Lowering only has to decide clause placement, so it
// never fails on a well-formed tree except through builder scope errors.
//
// SEALED INTERFACES:
//
// Filter, Selection and Operation are sealed interfaces using the marker
// method pattern. Only types in this package implement them, so lowering can
// switch over them exhaustively:
//
//	switch f := filter.(type) {
//	case *PropertyFilter:
//	    // compare an attribute
//	case *LogicalFilter:
//	    // AND / OR / NOT
//	...
//	}
//
// Adding a variant means extending the switch in every consumer.
//
// TREE WALKS:
//
// Every node exposes Children. Walk, Validate and Print are built on it and
// never look inside a node's fields directly.
//
// WARNINGS:
//
// Validate collects structural warnings (nested lists paginated without a
// sort, rules that can never fire) into an explicit result value. Nothing in
// this package keeps global state.
package queryir
