package addrbook

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/mailpat/internal/pattern"
)

// Group is a named set of addresses and address regexes. It implements
// pattern.Group.
type Group struct {
	Name    string
	mu      sync.RWMutex
	addrs   map[string]bool
	regexes RegexList
}

// Match reports whether s is one of the group's addresses or matches one
// of its regexes. Addresses compare case-insensitively.
func (g *Group) Match(s string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.addrs[strings.ToLower(s)] || g.regexes.Match(s)
}

// Add adds addresses to the group.
func (g *Group) Add(addrs ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, a := range addrs {
		g.addrs[strings.ToLower(a)] = true
	}
}

// AddRegex adds address regexes to the group.
func (g *Group) AddRegex(exprs ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, expr := range exprs {
		if err := g.regexes.Add(expr); err != nil {
			return fmt.Errorf("group %s: %w", g.Name, err)
		}
	}
	return nil
}

// Groups is a registry of address groups. It implements
// pattern.GroupRegistry.
//
// Compiled patterns hold references to the groups they name, so a group
// removed from the registry stays usable by trees compiled before.
type Groups struct {
	mu     sync.RWMutex
	groups map[string]*Group
}

var _ pattern.GroupRegistry = (*Groups)(nil)

// NewGroups creates an empty registry.
func NewGroups() *Groups {
	return &Groups{groups: make(map[string]*Group)}
}

// Define returns the named group, creating it if needed.
func (r *Groups) Define(name string) *Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[name]
	if !ok {
		g = &Group{Name: name, addrs: make(map[string]bool)}
		r.groups[name] = g
	}
	return g
}

// Remove deletes the named group from the registry.
func (r *Groups) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, name)
}

// Group looks up a group by name.
func (r *Groups) Group(name string) (pattern.Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[name]
	if !ok {
		return nil, false
	}
	return g, true
}

// Names returns the defined group names in sorted order.
func (r *Groups) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
