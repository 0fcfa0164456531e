package mail

import (
	"strings"
	"time"
)

// Address is a single parsed mailbox address.
type Address struct {
	Name    string // display name, may be empty
	Mailbox string // addr-spec, e.g. "user@example.com"
}

// String renders the address the way it would appear in a header.
func (a Address) String() string {
	if a.Name == "" {
		return a.Mailbox
	}
	return a.Name + " <" + a.Mailbox + ">"
}

// Domain returns the part of the mailbox after the last '@'.
func (a Address) Domain() string {
	if i := strings.LastIndexByte(a.Mailbox, '@'); i >= 0 {
		return a.Mailbox[i+1:]
	}
	return ""
}

// Flags is the set of per-message status flags.
type Flags uint16

const (
	FlagDeleted Flags = 1 << iota
	FlagExpired
	FlagFlagged
	FlagOld
	FlagRead
	FlagReplied
	FlagSuperseded
	FlagTagged
)

// Has reports whether all of the given flags are set.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// Unread reports whether the message has not been read.
// New and old messages are both unread.
func (f Flags) Unread() bool {
	return !f.Has(FlagRead)
}

// New reports whether the message is unread and was not seen by a previous
// session.
func (f Flags) New() bool {
	return f.Unread() && !f.Has(FlagOld)
}

// Security describes the cryptographic state of a message.
type Security uint8

const (
	SecuritySigned Security = 1 << iota
	SecurityEncrypted
	SecurityGoodSignature
	SecurityPGPKey
)

// Has reports whether all of the given bits are set.
func (s Security) Has(bit Security) bool {
	return s&bit == bit
}

// Message is the read-only accessor for one message.
//
// Implementations must be safe for concurrent reads.
type Message interface {
	// Number is the 1-based position of the message in its mailbox.
	Number() int

	From() []Address
	Sender() []Address
	To() []Address
	Cc() []Address

	Subject() string
	MessageID() string
	// References returns the References and In-Reply-To message-ids.
	References() []string
	Newsgroups() string
	// Spam is the spam attribute (e.g. an X-Spam-Status value).
	Spam() string
	Label() string
	Tags() []string

	Score() int
	Size() int64
	DateSent() time.Time
	DateReceived() time.Time

	Flags() Flags
	Security() Security

	// Content accessors. Thorough decodes transfer encodings and converts
	// parts to text; otherwise the raw text is returned.
	Header(thorough bool) (string, error)
	Body(thorough bool) (string, error)
	// Parts returns the MIME content types of every leaf part.
	Parts() ([]string, error)
	// Attachments counts the parts that are not the main text.
	Attachments() (int, error)
}

// Mailbox exposes thread relationships between messages.
type Mailbox interface {
	// Parent returns the message this one replies to, if it is present.
	Parent(m Message) (Message, bool)
	// Children returns the direct replies to m in mailbox order.
	Children(m Message) []Message
	// Root returns the top of m's thread (m itself if it has no parent).
	Root(m Message) Message

	// Collapsed reports whether m sits in a collapsed thread that hides
	// more than one message.
	Collapsed(m Message) bool
	// Duplicate reports whether an earlier message carries the same Message-ID.
	Duplicate(m Message) bool
	// Broken reports whether m references a parent that is not present.
	Broken(m Message) bool
	// Unreferenced reports whether no message in the mailbox replies to m.
	Unreferenced(m Message) bool
}
