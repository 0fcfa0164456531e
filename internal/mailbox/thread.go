package mailbox

import (
	"github.com/roach88/mailpat/internal/mail"
)

// Mailbox is an ordered, threaded set of messages. It implements
// mail.Mailbox. Threads are computed once by New; Collapse only changes
// display state.
type Mailbox struct {
	msgs     []*Message
	parent   map[*Message]*Message
	children map[*Message][]*Message
	dup      map[*Message]bool
	broken   map[*Message]bool
	folded   map[*Message]bool
}

var _ mail.Mailbox = (*Mailbox)(nil)

// New threads msgs in the given order. Messages without an index are
// numbered from their position.
func New(msgs ...*Message) *Mailbox {
	mb := &Mailbox{
		msgs:     msgs,
		parent:   make(map[*Message]*Message),
		children: make(map[*Message][]*Message),
		dup:      make(map[*Message]bool),
		broken:   make(map[*Message]bool),
		folded:   make(map[*Message]bool),
	}

	byID := make(map[string]*Message, len(msgs))
	for i, m := range msgs {
		if m.Index == 0 {
			m.Index = i + 1
		}
		id := m.Envelope.MessageID
		if id == "" {
			continue
		}
		if _, seen := byID[id]; seen {
			mb.dup[m] = true
			continue
		}
		byID[id] = m
	}

	for _, m := range msgs {
		ref, ok := parentID(m)
		if !ok {
			continue
		}
		p, found := byID[ref]
		if !found {
			mb.broken[m] = true
			continue
		}
		if p == m || mb.descends(p, m) {
			continue
		}
		mb.parent[m] = p
		mb.children[p] = append(mb.children[p], m)
	}
	return mb
}

// parentID picks the id m replies to: the last References entry, else the
// first In-Reply-To entry.
func parentID(m *Message) (string, bool) {
	if refs := m.Envelope.References; len(refs) > 0 {
		return refs[len(refs)-1], true
	}
	if irt := m.Envelope.InReplyTo; len(irt) > 0 {
		return irt[0], true
	}
	return "", false
}

// descends reports whether m is an ancestor of (or is) p.
func (mb *Mailbox) descends(p, m *Message) bool {
	for cur := p; cur != nil; cur = mb.parent[cur] {
		if cur == m {
			return true
		}
	}
	return false
}

// Messages returns the messages in mailbox order.
func (mb *Mailbox) Messages() []*Message { return mb.msgs }

// Len returns the number of messages.
func (mb *Mailbox) Len() int { return len(mb.msgs) }

// Collapse folds the thread containing m.
func (mb *Mailbox) Collapse(m *Message) {
	mb.folded[mb.root(m)] = true
}

// CollapseAll folds every thread.
func (mb *Mailbox) CollapseAll() {
	for _, m := range mb.msgs {
		if mb.parent[m] == nil {
			mb.folded[m] = true
		}
	}
}

func (mb *Mailbox) Parent(m mail.Message) (mail.Message, bool) {
	p := mb.parent[own(m)]
	if p == nil {
		return nil, false
	}
	return p, true
}

func (mb *Mailbox) Children(m mail.Message) []mail.Message {
	kids := mb.children[own(m)]
	out := make([]mail.Message, len(kids))
	for i, k := range kids {
		out[i] = k
	}
	return out
}

func (mb *Mailbox) Root(m mail.Message) mail.Message {
	msg := own(m)
	if msg == nil {
		return m
	}
	return mb.root(msg)
}

func (mb *Mailbox) Collapsed(m mail.Message) bool {
	msg := own(m)
	if msg == nil {
		return false
	}
	root := mb.root(msg)
	return mb.folded[root] && len(mb.children[root]) > 0
}

func (mb *Mailbox) Duplicate(m mail.Message) bool    { return mb.dup[own(m)] }
func (mb *Mailbox) Broken(m mail.Message) bool       { return mb.broken[own(m)] }
func (mb *Mailbox) Unreferenced(m mail.Message) bool { return len(mb.children[own(m)]) == 0 }

func (mb *Mailbox) root(m *Message) *Message {
	for mb.parent[m] != nil {
		m = mb.parent[m]
	}
	return m
}

func own(m mail.Message) *Message {
	msg, _ := m.(*Message)
	return msg
}
