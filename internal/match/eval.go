package match

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/mailpat/internal/mail"
	"github.com/roach88/mailpat/internal/pattern"
)

// Flags control a single evaluation.
type Flags struct {
	// FullMessage allows the body, header and whole-message operators to
	// read message content. Without it they never match.
	FullMessage bool

	// FullAddress matches address operators against the display name as
	// well as the addr-spec.
	FullAddress bool

	// Thorough decodes transfer encodings and converts MIME parts to text
	// before content is searched.
	Thorough bool
}

// Searcher runs server-side searches for "=b", "=B" and "=h" nodes.
type Searcher interface {
	Search(ctx context.Context, msg mail.Message, field pattern.Kind, text string, ignoreCase bool) (bool, error)
}

// CryptoInspector reports the cryptographic state of a message. Without one
// the evaluator uses Message.Security.
type CryptoInspector interface {
	Security(ctx context.Context, msg mail.Message) (mail.Security, error)
}

// Observer is notified as the evaluator works. Implementations must be safe
// for concurrent use when the evaluator is.
type Observer interface {
	// Leaf is called for every leaf evaluated, with its result before
	// negation.
	Leaf(kind pattern.Kind, matched bool)
	// CacheLookup is called for every aggregate predicate lookup.
	CacheLookup(kind pattern.Kind, all, hit bool)
}

// Evaluator applies compiled patterns to messages.
//
// An Evaluator holds no per-evaluation state and is safe for concurrent
// use if its collaborators are.
type Evaluator struct {
	dir      Directory
	aliases  AliasLookup
	searcher Searcher
	crypto   CryptoInspector
	observer Observer
	clock    pattern.Clock
	logger   *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithDirectory sets the identity and mailing-list directory used by
// "~p", "~P", "~l" and "~u".
func WithDirectory(dir Directory) Option {
	return func(e *Evaluator) {
		e.dir = dir
	}
}

// WithAliases sets the alias lookup used by the "@" modifier.
func WithAliases(aliases AliasLookup) Option {
	return func(e *Evaluator) {
		e.aliases = aliases
	}
}

// WithSearcher sets the server-side searcher.
func WithSearcher(s Searcher) Option {
	return func(e *Evaluator) {
		e.searcher = s
	}
}

// WithCrypto sets the crypto inspector.
func WithCrypto(c CryptoInspector) Option {
	return func(e *Evaluator) {
		e.crypto = c
	}
}

// WithObserver sets the observer.
func WithObserver(o Observer) Option {
	return func(e *Evaluator) {
		e.observer = o
	}
}

// WithClock sets the clock that relative date ranges are resolved against.
func WithClock(c pattern.Clock) Option {
	return func(e *Evaluator) {
		e.clock = c
	}
}

// WithLogger sets the logger for collaborator failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// New creates an Evaluator. Unset collaborators default to an empty
// directory, the system clock and slog.Default().
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		dir:    emptyDirectory{},
		clock:  pattern.SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Match reports whether msg matches tree.
//
// mbox may be nil when the tree has no thread operators. cache memoizes
// aggregate predicates for msg; nil disables memoization. ctx is passed to
// the Searcher and CryptoInspector only.
func (e *Evaluator) Match(ctx context.Context, tree *pattern.Tree, flags Flags, msg mail.Message, mbox mail.Mailbox, cache *Cache) (bool, error) {
	root := tree.Root()
	if root == nil {
		return false, ErrReleasedTree
	}
	return e.MatchNode(ctx, root, flags, msg, mbox, cache)
}

// MatchNode is Match for a single node and its descendants.
func (e *Evaluator) MatchNode(ctx context.Context, n *pattern.Node, flags Flags, msg mail.Message, mbox mail.Mailbox, cache *Cache) (bool, error) {
	ev := &evaluation{Evaluator: e, ctx: ctx, flags: flags, mbox: mbox}
	return ev.eval(n, msg, cache)
}

// evaluation carries the arguments shared by one Match call.
type evaluation struct {
	*Evaluator
	ctx   context.Context
	flags Flags
	mbox  mail.Mailbox
}

func (ev *evaluation) eval(n *pattern.Node, msg mail.Message, cache *Cache) (bool, error) {
	var (
		matched bool
		err     error
	)

	switch {
	case n.Kind == pattern.KindAnd:
		matched = true
		for _, child := range n.Children {
			ok, err := ev.eval(child, msg, cache)
			if err != nil {
				return false, err
			}
			if !ok {
				matched = false
				break
			}
		}

	case n.Kind == pattern.KindOr:
		for _, child := range n.Children {
			ok, err := ev.eval(child, msg, cache)
			if err != nil {
				return false, err
			}
			if ok {
				matched = true
				break
			}
		}

	case n.Kind == pattern.KindThread || n.Kind == pattern.KindParent || n.Kind == pattern.KindChildren:
		matched, err = ev.thread(n, msg)

	default:
		matched, err = ev.leaf(n, msg, cache)
		if err == nil && ev.observer != nil {
			ev.observer.Leaf(n.Kind, matched)
		}
	}

	if err != nil {
		return false, err
	}
	return matched != n.Flags.Not, nil
}

// thread evaluates the sub-pattern of a thread operator against related
// messages. Those messages get no cache: a Cache belongs to one message.
func (ev *evaluation) thread(n *pattern.Node, msg mail.Message) (bool, error) {
	if ev.mbox == nil {
		return false, ErrNoThreadContext
	}
	if len(n.Children) != 1 {
		return false, malformed(n)
	}
	sub := n.Children[0]

	switch n.Kind {
	case pattern.KindParent:
		parent, ok := ev.mbox.Parent(msg)
		if !ok {
			return false, nil
		}
		return ev.eval(sub, parent, nil)

	case pattern.KindChildren:
		for _, child := range ev.mbox.Children(msg) {
			ok, err := ev.eval(sub, child, nil)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil

	default:
		return ev.subtree(sub, ev.mbox.Root(msg))
	}
}

// subtree reports whether m or any of its descendants matches sub.
func (ev *evaluation) subtree(sub *pattern.Node, m mail.Message) (bool, error) {
	ok, err := ev.eval(sub, m, nil)
	if err != nil || ok {
		return ok, err
	}
	for _, child := range ev.mbox.Children(m) {
		ok, err := ev.subtree(sub, child)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (ev *evaluation) leaf(n *pattern.Node, msg mail.Message, cache *Cache) (bool, error) {
	switch n.Kind {
	case pattern.KindAll:
		return true, nil
	case pattern.KindDeleted:
		return msg.Flags().Has(mail.FlagDeleted), nil
	case pattern.KindExpired:
		return msg.Flags().Has(mail.FlagExpired), nil
	case pattern.KindFlagged:
		return msg.Flags().Has(mail.FlagFlagged), nil
	case pattern.KindNew:
		return msg.Flags().New(), nil
	case pattern.KindOld:
		return msg.Flags().Unread() && msg.Flags().Has(mail.FlagOld), nil
	case pattern.KindRead:
		return msg.Flags().Has(mail.FlagRead), nil
	case pattern.KindUnread:
		return msg.Flags().Unread(), nil
	case pattern.KindReplied:
		return msg.Flags().Has(mail.FlagReplied), nil
	case pattern.KindSuperseded:
		return msg.Flags().Has(mail.FlagSuperseded), nil
	case pattern.KindTagged:
		return msg.Flags().Has(mail.FlagTagged), nil

	case pattern.KindCollapsed, pattern.KindDuplicated, pattern.KindUnreferenced, pattern.KindBroken:
		return ev.threadStatus(n.Kind, msg)

	case pattern.KindCryptSigned:
		return ev.security(msg).Has(mail.SecuritySigned), nil
	case pattern.KindCryptEncrypted:
		return ev.security(msg).Has(mail.SecurityEncrypted), nil
	case pattern.KindCryptVerified:
		return ev.security(msg).Has(mail.SecurityGoodSignature), nil
	case pattern.KindPGPKey:
		return ev.security(msg).Has(mail.SecurityPGPKey), nil

	case pattern.KindList, pattern.KindSubscribedList, pattern.KindPersonalRecipient, pattern.KindPersonalFrom:
		return ev.aggregate(n, msg, cache), nil

	case pattern.KindFrom:
		return ev.addresses(n, msg.From())
	case pattern.KindTo:
		return ev.addresses(n, msg.To())
	case pattern.KindCc:
		return ev.addresses(n, msg.Cc())
	case pattern.KindSender:
		return ev.addresses(n, msg.Sender())
	case pattern.KindRecipient:
		return ev.addresses(n, msg.To(), msg.Cc())
	case pattern.KindAddress:
		return ev.addresses(n, msg.From(), msg.Sender(), msg.To(), msg.Cc())

	case pattern.KindSubject:
		return ev.text(n, msg.Subject())
	case pattern.KindMessageID:
		return ev.text(n, msg.MessageID())
	case pattern.KindSpam:
		return ev.text(n, msg.Spam())
	case pattern.KindLabel:
		return ev.text(n, msg.Label())
	case pattern.KindNewsgroups:
		return ev.text(n, msg.Newsgroups())
	case pattern.KindReferences:
		return ev.anyText(n, msg.References())
	case pattern.KindTags:
		return ev.anyText(n, msg.Tags())

	case pattern.KindBody, pattern.KindHeader, pattern.KindWholeMessage:
		return ev.content(n, msg)
	case pattern.KindMIMEType:
		return ev.mimeType(n, msg)

	case pattern.KindMessageNumber:
		return ev.number(n, int64(msg.Number()))
	case pattern.KindScore:
		return ev.number(n, int64(msg.Score()))
	case pattern.KindSize:
		return ev.number(n, msg.Size())
	case pattern.KindAttachments:
		return ev.attachments(n, msg)

	case pattern.KindDateSent:
		return ev.date(n, msg.DateSent())
	case pattern.KindDateReceived:
		return ev.date(n, msg.DateReceived())

	case pattern.KindExternalID:
		alts, ok := n.Operand.(pattern.Alternatives)
		if !ok {
			return false, malformed(n)
		}
		return alts.Contains(msg.MessageID()), nil

	case pattern.KindServerSearch:
		return ev.serverSearch(n, msg)
	}
	return false, malformed(n)
}

func (ev *evaluation) threadStatus(kind pattern.Kind, msg mail.Message) (bool, error) {
	if ev.mbox == nil {
		return false, ErrNoThreadContext
	}
	switch kind {
	case pattern.KindCollapsed:
		return ev.mbox.Collapsed(msg), nil
	case pattern.KindDuplicated:
		return ev.mbox.Duplicate(msg), nil
	case pattern.KindUnreferenced:
		return ev.mbox.Unreferenced(msg), nil
	default:
		return ev.mbox.Broken(msg), nil
	}
}

func (ev *evaluation) security(msg mail.Message) mail.Security {
	if ev.crypto == nil {
		return msg.Security()
	}
	sec, err := ev.crypto.Security(ev.ctx, msg)
	if err != nil {
		ev.logger.Warn("crypto inspection failed", "message", msg.Number(), "error", err)
		return 0
	}
	return sec
}

// aggregate evaluates a list or personal predicate through the cache.
func (ev *evaluation) aggregate(n *pattern.Node, msg mail.Message, cache *Cache) bool {
	all := n.Flags.AllAddr
	if v, ok := cache.Get(n.Kind, all); ok {
		if ev.observer != nil {
			ev.observer.CacheLookup(n.Kind, all, true)
		}
		return v
	}
	if ev.observer != nil {
		ev.observer.CacheLookup(n.Kind, all, false)
	}

	var v bool
	switch n.Kind {
	case pattern.KindList:
		v = IsListRecipient(ev.dir, all, msg)
	case pattern.KindSubscribedList:
		v = IsSubscribedListRecipient(ev.dir, all, msg)
	case pattern.KindPersonalRecipient:
		v = IsPersonalRecipient(ev.dir, all, msg)
	case pattern.KindPersonalFrom:
		v = IsPersonalFrom(ev.dir, all, msg)
	}
	cache.put(n.Kind, all, v)
	return v
}

// addresses matches an address operator. The "@" modifier restricts it to
// known aliases; the "^" modifier requires every address to match.
func (ev *evaluation) addresses(n *pattern.Node, lists ...[]mail.Address) (bool, error) {
	if !textOperand(n) {
		return false, malformed(n)
	}
	pred := func(addr mail.Address) bool {
		if n.Flags.Alias && (ev.aliases == nil || !ev.aliases.IsAlias(addr)) {
			return false
		}
		if matchText(n, addr.Mailbox) {
			return true
		}
		return ev.flags.FullAddress && addr.Name != "" && matchText(n, addr.Name)
	}
	return scan(n.Flags.AllAddr, pred, lists...), nil
}

func (ev *evaluation) text(n *pattern.Node, s string) (bool, error) {
	if !textOperand(n) {
		return false, malformed(n)
	}
	return matchText(n, s), nil
}

func (ev *evaluation) anyText(n *pattern.Node, values []string) (bool, error) {
	if !textOperand(n) {
		return false, malformed(n)
	}
	for _, v := range values {
		if matchText(n, v) {
			return true, nil
		}
	}
	return false, nil
}

// content searches the header, the body or both, one line at a time.
func (ev *evaluation) content(n *pattern.Node, msg mail.Message) (bool, error) {
	if !textOperand(n) {
		return false, malformed(n)
	}
	if !ev.flags.FullMessage {
		return false, nil
	}

	if n.Kind != pattern.KindBody {
		header, err := msg.Header(ev.flags.Thorough)
		if err != nil {
			ev.logger.Warn("reading header failed", "message", msg.Number(), "error", err)
			return false, nil
		}
		if anyLine(n, header) {
			return true, nil
		}
	}
	if n.Kind != pattern.KindHeader {
		body, err := msg.Body(ev.flags.Thorough)
		if err != nil {
			ev.logger.Warn("reading body failed", "message", msg.Number(), "error", err)
			return false, nil
		}
		return anyLine(n, body), nil
	}
	return false, nil
}

func (ev *evaluation) mimeType(n *pattern.Node, msg mail.Message) (bool, error) {
	if !textOperand(n) {
		return false, malformed(n)
	}
	if !ev.flags.FullMessage {
		return false, nil
	}
	parts, err := msg.Parts()
	if err != nil {
		ev.logger.Warn("reading MIME structure failed", "message", msg.Number(), "error", err)
		return false, nil
	}
	return ev.anyText(n, parts)
}

func (ev *evaluation) attachments(n *pattern.Node, msg mail.Message) (bool, error) {
	if _, ok := n.Operand.(pattern.NumberRange); !ok {
		return false, malformed(n)
	}
	if !ev.flags.FullMessage {
		return false, nil
	}
	count, err := msg.Attachments()
	if err != nil {
		ev.logger.Warn("counting attachments failed", "message", msg.Number(), "error", err)
		return false, nil
	}
	return ev.number(n, int64(count))
}

func (ev *evaluation) number(n *pattern.Node, v int64) (bool, error) {
	r, ok := n.Operand.(pattern.NumberRange)
	if !ok {
		return false, malformed(n)
	}
	return r.Contains(v), nil
}

// date checks t against the node's range. Dynamic ranges are resolved
// against the evaluator clock on every call.
func (ev *evaluation) date(n *pattern.Node, t time.Time) (bool, error) {
	d, ok := n.Operand.(pattern.DateRange)
	if !ok {
		return false, malformed(n)
	}
	var min, max time.Time
	if n.Flags.Dynamic {
		min, max = d.Bounds(ev.clock.Now())
	} else {
		min, max = d.Min, d.Max
	}
	if !min.IsZero() && t.Before(min) {
		return false, nil
	}
	if !max.IsZero() && t.After(max) {
		return false, nil
	}
	return true, nil
}

func (ev *evaluation) serverSearch(n *pattern.Node, msg mail.Message) (bool, error) {
	s, ok := n.Operand.(pattern.Search)
	if !ok {
		return false, malformed(n)
	}
	if ev.searcher == nil {
		ev.logger.Warn("server search requested but no searcher is configured", "field", s.Field)
		return false, nil
	}
	found, err := ev.searcher.Search(ev.ctx, msg, s.Field, s.Text, n.Flags.IgnoreCase)
	if err != nil {
		ev.logger.Warn("server search failed", "message", msg.Number(), "field", s.Field, "error", err)
		return false, nil
	}
	return found, nil
}

func textOperand(n *pattern.Node) bool {
	switch n.Operand.(type) {
	case pattern.Regex, pattern.Literal, pattern.GroupRef:
		return true
	}
	return false
}

// matchText applies a regex, literal or group operand to s.
func matchText(n *pattern.Node, s string) bool {
	switch op := n.Operand.(type) {
	case pattern.Regex:
		return op.Re.MatchString(s)
	case pattern.Literal:
		return op.In(s, n.Flags.IgnoreCase)
	case pattern.GroupRef:
		return op.Group.Match(s)
	}
	return false
}

func anyLine(n *pattern.Node, text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if matchText(n, strings.TrimSuffix(line, "\r")) {
			return true
		}
	}
	return false
}
