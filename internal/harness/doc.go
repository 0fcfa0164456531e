// Package harness runs pattern conformance scenarios.
//
// A scenario is a YAML file describing a small mailbox, the settings to
// compile patterns with, and a list of patterns with the message numbers
// each must match (or the compile error it must fail with).
//
// # Scenario Format
//
//	name: threads
//	description: "Thread operators over one conversation"
//	now: 2024-03-20T12:00:00Z
//	settings:
//	  from: [me@example.com]
//	  full_message: true
//	messages:
//	  - flags: R
//	    raw: |
//	      From: alice@example.com
//	      Subject: hello
//	      Message-ID: <a@example.com>
//
//	      body
//	setup:
//	  - tag: "~f alice"
//	  - collapse: 1
//	cases:
//	  - pattern: "~f alice"
//	    expect: [1]
//	  - pattern: "~Z"
//	    error: UNKNOWN_OPERATOR
//	assertions:
//	  - type: tagged
//	    expect: [1]
//	  - type: metric
//	    name: mailpat_cache_lookups_total
//	    labels: 'kind="personal-recipient",result="hit",variant="any"'
//	    value: 1
//
// Settings use the same keys as the settings file. Message flags are
// letters: D(eleted) E(xpired) F(lagged) O(ld) R(ead) A(nswered)
// S(uperseded) T(agged).
//
// # Deterministic Testing
//
// Every scenario runs with a fixed clock (the scenario's now, or
// 2024-01-01T00:00:00Z) and sequential scan IDs, so relative dates and
// golden snapshots are reproducible.
package harness
