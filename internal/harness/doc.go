// Package harness runs compile conformance scenarios.
//
// A scenario names a model directory and a list of steps. Each step compiles
// one request and checks the statement against expectations. After all steps
// run, every compiled statement is recompiled through an in-memory journal
// replay; a scenario whose statements drift between compilations fails.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	model: ../model          # relative to the scenario file
//	claims: { sub: u1 }      # omit for unauthenticated steps
//	steps:
//	  - name: read_by_title
//	    request: |
//	      { movies(where: {title: "Heat"}) { title } }
//	    variables: { n: 1 }
//	    anonymous: false     # true drops the scenario claims
//	    expect:
//	      shape: list
//	      contains: ["WHERE this.title = $param0"]
//	      not_contains: ["CALL"]
//	      order: ["MATCH", "WHERE", "RETURN"]
//	      params: { param0: "Heat" }
//	      warnings: 0
//	      events:
//	        - { type: Movie, operation: CREATE }
//	  - name: unknown_field
//	    request: "{ movies { budget } }"
//	    expect:
//	      error: E202
//
// # Golden Files
//
// RunWithGolden compares the canonical JSON of the compiled trace with
// testdata/golden/{scenario.Name}.golden. Regenerate with
//
//	go test ./internal/harness -update
package harness
