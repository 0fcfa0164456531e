package addrbook

import (
	"strings"
	"sync"

	"github.com/roach88/mailpat/internal/mail"
)

// Book is the user's address book: their own addresses, the mailing lists
// they know about, and their aliases.
//
// It implements match.Directory and match.AliasLookup. Lookups may run
// concurrently with each other and with updates.
type Book struct {
	mu           sync.RWMutex
	me           map[string]bool
	alternates   RegexList
	unalternates RegexList
	lists        RegexList
	unlists      RegexList
	subscribed   RegexList
	unsubscribed RegexList
	aliases      map[string][]mail.Address
}

// NewBook creates a book whose owner uses the given addresses.
func NewBook(me ...string) *Book {
	b := &Book{
		me:      make(map[string]bool),
		aliases: make(map[string][]mail.Address),
	}
	for _, addr := range me {
		b.me[strings.ToLower(addr)] = true
	}
	return b
}

// AddAlternates adds regexes for the user's other addresses.
func (b *Book) AddAlternates(exprs ...string) error {
	return b.update(&b.alternates, &b.unalternates, exprs)
}

// AddUnalternates excludes addresses that would otherwise match an
// alternate.
func (b *Book) AddUnalternates(exprs ...string) error {
	return b.update(&b.unalternates, &b.alternates, exprs)
}

// AddLists adds regexes for known mailing lists.
func (b *Book) AddLists(exprs ...string) error {
	return b.update(&b.lists, &b.unlists, exprs)
}

// AddUnlists excludes addresses from the known lists.
func (b *Book) AddUnlists(exprs ...string) error {
	return b.update(&b.unlists, &b.lists, exprs)
}

// Subscribe adds regexes for subscribed mailing lists. A subscribed list
// is also a known list.
func (b *Book) Subscribe(exprs ...string) error {
	return b.update(&b.subscribed, &b.unsubscribed, exprs)
}

// Unsubscribe excludes addresses from the subscribed lists.
func (b *Book) Unsubscribe(exprs ...string) error {
	return b.update(&b.unsubscribed, &b.subscribed, exprs)
}

// update adds exprs to add and removes the same expressions from its
// opposite list, so the most recent setting wins.
func (b *Book) update(add, opposite *RegexList, exprs []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, expr := range exprs {
		opposite.Remove(expr)
		if expr == "*" {
			continue
		}
		if err := add.Add(expr); err != nil {
			return err
		}
	}
	return nil
}

// AddAlias maps name to one or more addresses.
func (b *Book) AddAlias(name string, addrs ...mail.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.aliases[name] = append(b.aliases[name], addrs...)
}

// Alias returns the addresses an alias expands to.
func (b *Book) Alias(name string) ([]mail.Address, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	addrs, ok := b.aliases[name]
	return addrs, ok
}

// IsMe reports whether addr is one of the user's addresses.
func (b *Book) IsMe(addr mail.Address) bool {
	mbox := strings.ToLower(addr.Mailbox)
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.me[mbox] {
		return true
	}
	return b.alternates.Match(mbox) && !b.unalternates.Match(mbox)
}

// IsList reports whether addr is a known or subscribed mailing list.
func (b *Book) IsList(addr mail.Address) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.subscribedLocked(addr.Mailbox) {
		return true
	}
	return b.lists.Match(addr.Mailbox) && !b.unlists.Match(addr.Mailbox)
}

// IsSubscribed reports whether addr is a subscribed mailing list.
func (b *Book) IsSubscribed(addr mail.Address) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subscribedLocked(addr.Mailbox)
}

func (b *Book) subscribedLocked(mbox string) bool {
	return b.subscribed.Match(mbox) && !b.unsubscribed.Match(mbox)
}

// IsAlias reports whether addr is the target of any alias.
func (b *Book) IsAlias(addr mail.Address) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, targets := range b.aliases {
		for _, t := range targets {
			if strings.EqualFold(t.Mailbox, addr.Mailbox) {
				return true
			}
		}
	}
	return false
}
