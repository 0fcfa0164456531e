// Package pattern compiles mail search expressions into expression trees.
//
// A search expression is a sequence of clauses. Each clause is an operator
// such as "~s" (subject) or "~d" (date sent) followed by the operand the
// operator requires:
//
//	~f alice ~s "quarterly report"      from alice AND subject matches
//	~s urgent | ~F                      subject matches OR flagged
//	!(~l | ~p) ~d <2w                   neither list nor personal, newer than two weeks
//	^~C @example\.com$                  every To/Cc address matches
//	~( ~P )                             a message in the thread is from me
//
// GRAMMAR:
//
//	disjunction := conjunction { "|" conjunction }
//	conjunction := atom { atom }
//	atom        := { "!" | "^" | "@" } ( "(" disjunction ")" | clause )
//	clause      := prefix letter [ operand ]
//	prefix      := "~" (regex) | "=" (substring) | "%" (address group)
//
// "|" binds more loosely than adjacency, so "~A | ~B ~C" means
// "~A | (~B ~C)". A chain of "|" produces one OR node with a flat child
// list; adjacent clauses produce one AND node. Parentheses are kept as
// written.
//
// OPERANDS:
//
// The registry (Operators) declares the operand shape of every operator:
// none, text, numeric range, date range, nested pattern, or external query.
// Text operands are regular expressions with "~", literal substrings with
// "=", and group names with "%". Matching is case-insensitive unless the
// operand contains an upper-case letter; Options.Case overrides this.
//
// Relative date operands ("<3d", ">1m", "=2w") are marked dynamic and are
// resolved against the evaluation clock every time they are matched, so a
// filter that lives for days still means "three days ago" from now.
//
// OWNERSHIP:
//
// Compile returns a Tree that owns every node and operand. Group operands
// are references into the caller's GroupRegistry and stay owned by it. A
// failed compile returns no tree. Trees are never mutated after
// construction and may be evaluated from several goroutines at once.
package pattern
