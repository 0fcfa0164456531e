package pattern

import "fmt"

// Kind identifies what a node tests.
type Kind int

const (
	KindAnd Kind = iota
	KindOr

	// Thread sub-patterns.
	KindThread
	KindParent
	KindChildren

	// Message status.
	KindAll
	KindDeleted
	KindExpired
	KindFlagged
	KindNew
	KindOld
	KindRead
	KindReplied
	KindSuperseded
	KindTagged
	KindUnread

	// Thread status.
	KindCollapsed
	KindDuplicated
	KindUnreferenced
	KindBroken

	// Crypto status.
	KindCryptSigned
	KindCryptEncrypted
	KindCryptVerified
	KindPGPKey

	// Aggregate address predicates.
	KindList
	KindSubscribedList
	KindPersonalRecipient
	KindPersonalFrom

	// Address fields.
	KindFrom
	KindTo
	KindCc
	KindRecipient
	KindSender
	KindAddress

	// String fields.
	KindSubject
	KindMessageID
	KindReferences
	KindSpam
	KindLabel
	KindTags
	KindNewsgroups

	// Message content.
	KindBody
	KindHeader
	KindWholeMessage
	KindMIMEType

	// Numeric ranges.
	KindMessageNumber
	KindScore
	KindSize
	KindAttachments

	// Date ranges.
	KindDateSent
	KindDateReceived

	// Delegated.
	KindExternalID
	KindServerSearch

	numKinds
)

var kindNames = [numKinds]string{
	KindAnd:               "and",
	KindOr:                "or",
	KindThread:            "thread",
	KindParent:            "parent",
	KindChildren:          "children",
	KindAll:               "all",
	KindDeleted:           "deleted",
	KindExpired:           "expired",
	KindFlagged:           "flagged",
	KindNew:               "new",
	KindOld:               "old",
	KindRead:              "read",
	KindReplied:           "replied",
	KindSuperseded:        "superseded",
	KindTagged:            "tagged",
	KindUnread:            "unread",
	KindCollapsed:         "collapsed",
	KindDuplicated:        "duplicated",
	KindUnreferenced:      "unreferenced",
	KindBroken:            "broken",
	KindCryptSigned:       "signed",
	KindCryptEncrypted:    "encrypted",
	KindCryptVerified:     "verified",
	KindPGPKey:            "pgp-key",
	KindList:              "list",
	KindSubscribedList:    "subscribed-list",
	KindPersonalRecipient: "personal-recipient",
	KindPersonalFrom:      "personal-from",
	KindFrom:              "from",
	KindTo:                "to",
	KindCc:                "cc",
	KindRecipient:         "recipient",
	KindSender:            "sender",
	KindAddress:           "address",
	KindSubject:           "subject",
	KindMessageID:         "message-id",
	KindReferences:        "references",
	KindSpam:              "spam",
	KindLabel:             "label",
	KindTags:              "tags",
	KindNewsgroups:        "newsgroups",
	KindBody:              "body",
	KindHeader:            "header",
	KindWholeMessage:      "message",
	KindMIMEType:          "mime-type",
	KindMessageNumber:     "number",
	KindScore:             "score",
	KindSize:              "size",
	KindAttachments:       "attachments",
	KindDateSent:          "date",
	KindDateReceived:      "received",
	KindExternalID:        "external-id",
	KindServerSearch:      "server-search",
}

func (k Kind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Logical reports whether k combines child nodes.
func (k Kind) Logical() bool {
	return k == KindAnd || k == KindOr
}

// Aggregate reports whether k is one of the address-aggregation predicates
// whose results are memoized per message.
func (k Kind) Aggregate() bool {
	switch k {
	case KindList, KindSubscribedList, KindPersonalRecipient, KindPersonalFrom:
		return true
	}
	return false
}

// NeedsThread reports whether evaluating k requires a mailbox.
func (k Kind) NeedsThread() bool {
	switch k {
	case KindThread, KindParent, KindChildren,
		KindCollapsed, KindDuplicated, KindUnreferenced, KindBroken:
		return true
	}
	return false
}
