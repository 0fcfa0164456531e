package match

import "github.com/roach88/mailpat/internal/pattern"

// family is one of the memoized aggregate predicates.
type family int

const (
	familyList family = iota
	familySubscribedList
	familyPersonalRecipient
	familyPersonalFrom
	numFamilies
)

func familyOf(kind pattern.Kind) (family, bool) {
	switch kind {
	case pattern.KindList:
		return familyList, true
	case pattern.KindSubscribedList:
		return familySubscribedList, true
	case pattern.KindPersonalRecipient:
		return familyPersonalRecipient, true
	case pattern.KindPersonalFrom:
		return familyPersonalFrom, true
	}
	return 0, false
}

// slot is an optional boolean.
type slot struct {
	set   bool
	value bool
}

// Cache memoizes the aggregate predicates of one message, separately for
// the any-address and all-addresses variants.
//
// The zero value is an empty cache. A nil *Cache disables memoization.
// Cache is not safe for concurrent use.
type Cache struct {
	slots [numFamilies][2]slot
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the memoized result for kind, if any. all selects the
// all-addresses variant.
func (c *Cache) Get(kind pattern.Kind, all bool) (value, ok bool) {
	f, known := familyOf(kind)
	if c == nil || !known {
		return false, false
	}
	s := c.slots[f][index(all)]
	return s.value, s.set
}

// put stores a result. Unknown kinds and nil caches are ignored.
func (c *Cache) put(kind pattern.Kind, all, value bool) {
	f, known := familyOf(kind)
	if c == nil || !known {
		return
	}
	c.slots[f][index(all)] = slot{set: true, value: value}
}

// Reset clears every slot so the cache can be used for another message.
func (c *Cache) Reset() {
	if c == nil {
		return
	}
	*c = Cache{}
}

func index(all bool) int {
	if all {
		return 1
	}
	return 0
}
