// Package match evaluates compiled search patterns against messages.
//
// An Evaluator walks a pattern.Tree recursively for one message at a time:
//
//	ev := match.New(match.WithDirectory(book))
//	cache := match.NewCache()
//	ok, err := ev.Match(ctx, tree, match.Flags{}, msg, mbox, cache)
//
// AND and OR nodes evaluate their children in order and stop as soon as the
// result is known. Every node's result is inverted when its Not flag is set.
// The tree is never modified, so one tree may be evaluated by many
// goroutines at once as long as each uses its own Cache.
//
// # Cache
//
// The list, subscribed-list, personal-recipient and personal-from
// predicates scan every recipient address and are typically tested by
// several patterns in a row (scoring, colouring, hooks). Their results are
// memoized in a Cache, one per message. The cached value is the predicate
// before negation, so "~l" and "!~l" share a slot. A Cache must be Reset or
// discarded before it is used for another message.
//
// # Collaborators
//
// Identity and mailing-list knowledge comes from a Directory, alias
// knowledge from an AliasLookup, server-side search from a Searcher and
// cryptographic state from a CryptoInspector. Errors reported by them are
// logged and make the leaf evaluate to false. Thread operators need a
// mail.Mailbox; evaluating them without one fails with ErrNoThreadContext.
package match
