// Package schema holds the read-only graph data model the compiler consumes.
//
// A Model describes node entities, relationship-property types, interfaces,
// unions, authorization rules, computed fields and fulltext indexes. It is
// built once (usually by Load from CUE files) and never mutated afterwards,
// so any number of concurrent compilations may read it.
//
// CUE layout:
//
//	entity: Movie: {
//		attributes: {
//			title: {type: "String", required: true}
//			released: {type: "Int"}
//		}
//		relationships: {
//			actors: {type: "ACTED_IN", direction: "IN", target: "Actor", many: true, properties: "ActedIn"}
//		}
//		computed: {
//			actorCount: {statement: "MATCH (this)<-[:ACTED_IN]-(a) RETURN count(a) AS result", column: "result", type: "Int"}
//		}
//		fulltext: {MovieTitle: ["title"]}
//		rules: [{kind: "filter", operations: ["READ"], where: node: owner: "$jwt.sub"}]
//	}
//	edge: ActedIn: attributes: roles: {type: "String", list: true}
//	interface: Production: {attributes: title: type: "String", implementations: ["Movie", "Series"]}
//	union: Search: members: ["Movie", "Actor"]
//	claims: {sub: "String", roles: "[String]"}
//
// Declaration order is preserved everywhere it is observable: attribute
// order, interface implementations and union members (which fix the branch
// order of polymorphic selections).
package schema
