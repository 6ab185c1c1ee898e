// Package canonical provides the deterministic JSON encoding and the
// domain-separated SHA-256 fingerprints used to compare compiled statements
// across runs.
//
// Two compilations of the same request under the same model and claims must
// produce byte-identical text and parameters. The journal stores the
// fingerprints computed here and replay recomputes them.
package canonical
