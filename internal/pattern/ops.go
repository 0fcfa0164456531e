package pattern

import "sort"

// Shape is the kind of operand an operator takes.
type Shape int

const (
	ShapeNone    Shape = iota // no operand
	ShapeText                 // regex, literal or group name depending on prefix
	ShapeRange                // numeric range
	ShapeDate                 // date range
	ShapePattern              // parenthesised sub-expression
	ShapeQuery                // external search query
)

func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeText:
		return "text"
	case ShapeRange:
		return "range"
	case ShapeDate:
		return "date"
	case ShapePattern:
		return "pattern"
	case ShapeQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Operator describes one entry of the operator table.
type Operator struct {
	Tag         string // text after the prefix: "s", "=", "(", "<("
	Kind        Kind
	Shape       Shape
	Address     bool // matches against address lists; accepts "@"
	AllAddr     bool // accepts the "^" modifier
	FullMessage bool // needs message content; requires Options.FullMessage
	Help        string
}

// operators is the single source of truth for the compiler. Keep sorted
// by tag for the help listing.
var operators = []Operator{
	{Tag: "#", Kind: KindBroken, Shape: ShapeNone, Help: "broken threads"},
	{Tag: "$", Kind: KindUnreferenced, Shape: ShapeNone, Help: "unreferenced messages"},
	{Tag: "(", Kind: KindThread, Shape: ShapePattern, Help: "threads containing messages matching PATTERN"},
	{Tag: "<(", Kind: KindParent, Shape: ShapePattern, Help: "messages whose parent matches PATTERN"},
	{Tag: "=", Kind: KindDuplicated, Shape: ShapeNone, Help: "duplicated messages"},
	{Tag: ">(", Kind: KindChildren, Shape: ShapePattern, Help: "messages having a child matching PATTERN"},
	{Tag: "A", Kind: KindAll, Shape: ShapeNone, Help: "all messages"},
	{Tag: "B", Kind: KindWholeMessage, Shape: ShapeText, FullMessage: true, Help: "messages whose full text matches EXPR"},
	{Tag: "C", Kind: KindRecipient, Shape: ShapeText, Address: true, AllAddr: true, Help: "messages addressed (To or Cc) to EXPR"},
	{Tag: "D", Kind: KindDeleted, Shape: ShapeNone, Help: "deleted messages"},
	{Tag: "E", Kind: KindExpired, Shape: ShapeNone, Help: "expired messages"},
	{Tag: "F", Kind: KindFlagged, Shape: ShapeNone, Help: "flagged messages"},
	{Tag: "G", Kind: KindCryptEncrypted, Shape: ShapeNone, Help: "encrypted messages"},
	{Tag: "H", Kind: KindSpam, Shape: ShapeText, Help: "messages whose spam attribute matches EXPR"},
	{Tag: "I", Kind: KindExternalID, Shape: ShapeQuery, Help: "messages whose Message-ID is returned by QUERY"},
	{Tag: "L", Kind: KindAddress, Shape: ShapeText, Address: true, AllAddr: true, Help: "messages from or addressed to EXPR"},
	{Tag: "M", Kind: KindMIMEType, Shape: ShapeText, FullMessage: true, Help: "messages with a part whose Content-Type matches EXPR"},
	{Tag: "N", Kind: KindNew, Shape: ShapeNone, Help: "new messages"},
	{Tag: "O", Kind: KindOld, Shape: ShapeNone, Help: "old messages"},
	{Tag: "P", Kind: KindPersonalFrom, Shape: ShapeNone, AllAddr: true, Help: "messages from you"},
	{Tag: "Q", Kind: KindReplied, Shape: ShapeNone, Help: "replied messages"},
	{Tag: "R", Kind: KindRead, Shape: ShapeNone, Help: "read messages"},
	{Tag: "S", Kind: KindSuperseded, Shape: ShapeNone, Help: "superseded messages"},
	{Tag: "T", Kind: KindTagged, Shape: ShapeNone, Help: "tagged messages"},
	{Tag: "U", Kind: KindUnread, Shape: ShapeNone, Help: "unread messages"},
	{Tag: "V", Kind: KindCryptVerified, Shape: ShapeNone, Help: "cryptographically verified messages"},
	{Tag: "X", Kind: KindAttachments, Shape: ShapeRange, FullMessage: true, Help: "messages with RANGE attachments"},
	{Tag: "Y", Kind: KindTags, Shape: ShapeText, Help: "messages with a tag matching EXPR"},
	{Tag: "b", Kind: KindBody, Shape: ShapeText, FullMessage: true, Help: "messages whose body matches EXPR"},
	{Tag: "c", Kind: KindCc, Shape: ShapeText, Address: true, AllAddr: true, Help: "messages carbon-copied to EXPR"},
	{Tag: "d", Kind: KindDateSent, Shape: ShapeDate, Help: "messages sent in DATERANGE"},
	{Tag: "e", Kind: KindSender, Shape: ShapeText, Address: true, AllAddr: true, Help: "messages whose Sender matches EXPR"},
	{Tag: "f", Kind: KindFrom, Shape: ShapeText, Address: true, AllAddr: true, Help: "messages originating from EXPR"},
	{Tag: "g", Kind: KindCryptSigned, Shape: ShapeNone, Help: "signed messages"},
	{Tag: "h", Kind: KindHeader, Shape: ShapeText, FullMessage: true, Help: "messages with a header matching EXPR"},
	{Tag: "i", Kind: KindMessageID, Shape: ShapeText, Help: "messages whose Message-ID matches EXPR"},
	{Tag: "k", Kind: KindPGPKey, Shape: ShapeNone, Help: "messages containing PGP key material"},
	{Tag: "l", Kind: KindList, Shape: ShapeNone, AllAddr: true, Help: "messages addressed to known mailing lists"},
	{Tag: "m", Kind: KindMessageNumber, Shape: ShapeRange, Help: "messages in RANGE"},
	{Tag: "n", Kind: KindScore, Shape: ShapeRange, Help: "messages with a score in RANGE"},
	{Tag: "p", Kind: KindPersonalRecipient, Shape: ShapeNone, AllAddr: true, Help: "messages addressed to you"},
	{Tag: "r", Kind: KindDateReceived, Shape: ShapeDate, Help: "messages received in DATERANGE"},
	{Tag: "s", Kind: KindSubject, Shape: ShapeText, Help: "messages having EXPR in the Subject field"},
	{Tag: "t", Kind: KindTo, Shape: ShapeText, Address: true, AllAddr: true, Help: "messages addressed to EXPR"},
	{Tag: "u", Kind: KindSubscribedList, Shape: ShapeNone, AllAddr: true, Help: "messages addressed to subscribed mailing lists"},
	{Tag: "v", Kind: KindCollapsed, Shape: ShapeNone, Help: "messages in collapsed threads"},
	{Tag: "w", Kind: KindNewsgroups, Shape: ShapeText, Help: "messages posted to newsgroups matching EXPR"},
	{Tag: "x", Kind: KindReferences, Shape: ShapeText, Help: "messages whose References or In-Reply-To match EXPR"},
	{Tag: "y", Kind: KindLabel, Shape: ShapeText, Help: "messages whose label matches EXPR"},
	{Tag: "z", Kind: KindSize, Shape: ShapeRange, Help: "messages with a size in RANGE"},
}

var operatorsByTag = func() map[string]*Operator {
	m := make(map[string]*Operator, len(operators))
	for i := range operators {
		m[operators[i].Tag] = &operators[i]
	}
	return m
}()

// Lookup returns the operator registered for tag.
func Lookup(tag string) (Operator, bool) {
	op, ok := operatorsByTag[tag]
	if !ok {
		return Operator{}, false
	}
	return *op, true
}

// Operators returns a copy of the operator table sorted by tag.
func Operators() []Operator {
	out := make([]Operator, len(operators))
	copy(out, operators)
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}
