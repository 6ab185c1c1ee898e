// Package cypher provides the clause tree that compiled operations are lowered
// into, and its serialization to Cypher text with a separated parameter table.
//
// The package sits below every compiler in the repository:
//
//	[queryir] → [translate] → [cypher.Query] → text + params
//
// SEALED INTERFACES:
//
// Expr and Clause are sealed with marker methods so the printer and the
// scope checker can switch over them exhaustively.
//
// SCOPING:
//
// A Query knows which variables are bound at every point. Every clause
// appended to it is checked: a reference to a variable that was neither bound
// by an earlier clause nor imported explicitly is an error. Subqueries never
// capture implicitly; CALL bodies import through a leading WITH, and EXISTS /
// COUNT bodies declare the outer variables they use when they are created.
//
// PHASES:
//
// Each query part moves through Empty → Matching → Filtering → Mutating →
// Projecting. WITH opens a new part. Guards that must run before a mutation
// (GuardBefore) are only accepted while matching or filtering. Guards that run
// after a clause (GuardAfter) take the Anchor returned when that clause was
// appended, so a guard cannot be placed ahead of the clause it checks.
//
// PARAMETERS:
//
// Values never appear in statement text. Params hands out integer-identified
// Param references; names ("$param0", "$param1", ...) are produced only during
// serialization.
package cypher
