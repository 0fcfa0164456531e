package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/k3a/html2text"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/mailpat/internal/mail"
)

// Envelope holds the parsed header fields of a message.
//
// Message-IDs are stored without angle brackets.
type Envelope struct {
	From       []mail.Address
	Sender     []mail.Address
	To         []mail.Address
	Cc         []mail.Address
	Subject    string
	MessageID  string
	References []string
	InReplyTo  []string
	Newsgroups string
	Spam       string
	Label      string
	Keywords   []string
	Date       time.Time
}

// Message is an in-memory message. It implements mail.Message.
//
// Raw is the complete RFC 5322 text and backs the content accessors;
// a Message built without it has empty content.
type Message struct {
	Envelope   Envelope
	Index      int // 1-based position in the mailbox
	Status     mail.Flags
	Crypto     mail.Security
	ScoreValue int
	ReceivedAt time.Time
	Path       string // file the message was loaded from, if any
	Raw        []byte
}

var _ mail.Message = (*Message)(nil)

func (m *Message) Number() int             { return m.Index }
func (m *Message) From() []mail.Address    { return m.Envelope.From }
func (m *Message) Sender() []mail.Address  { return m.Envelope.Sender }
func (m *Message) To() []mail.Address      { return m.Envelope.To }
func (m *Message) Cc() []mail.Address      { return m.Envelope.Cc }
func (m *Message) Subject() string         { return m.Envelope.Subject }
func (m *Message) MessageID() string       { return m.Envelope.MessageID }
func (m *Message) Newsgroups() string      { return m.Envelope.Newsgroups }
func (m *Message) Spam() string            { return m.Envelope.Spam }
func (m *Message) Label() string           { return m.Envelope.Label }
func (m *Message) Tags() []string          { return m.Envelope.Keywords }
func (m *Message) Score() int              { return m.ScoreValue }
func (m *Message) Size() int64             { return int64(len(m.Raw)) }
func (m *Message) DateSent() time.Time     { return m.Envelope.Date }
func (m *Message) DateReceived() time.Time { return m.ReceivedAt }
func (m *Message) Flags() mail.Flags       { return m.Status }
func (m *Message) Security() mail.Security { return m.Crypto }

// References returns the References ids followed by the In-Reply-To ids.
func (m *Message) References() []string {
	if len(m.Envelope.InReplyTo) == 0 {
		return m.Envelope.References
	}
	refs := make([]string, 0, len(m.Envelope.References)+len(m.Envelope.InReplyTo))
	refs = append(refs, m.Envelope.References...)
	return append(refs, m.Envelope.InReplyTo...)
}

// Header returns the header section. Thorough decodes encoded words and
// returns one unfolded "Key: value" line per field.
func (m *Message) Header(thorough bool) (string, error) {
	if len(m.Raw) == 0 {
		return "", nil
	}
	if !thorough {
		head, _ := splitRaw(m.Raw)
		return string(head), nil
	}

	ent, err := m.entity()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fields := ent.Header.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		sb.WriteString(fields.Key())
		sb.WriteString(": ")
		sb.WriteString(norm.NFC.String(value))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// Body returns the body section. Thorough decodes every text part and
// converts HTML to plain text; other parts are skipped.
func (m *Message) Body(thorough bool) (string, error) {
	if len(m.Raw) == 0 {
		return "", nil
	}
	if !thorough {
		_, body := splitRaw(m.Raw)
		return string(body), nil
	}

	ent, err := m.entity()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	err = ent.Walk(func(_ []int, part *message.Entity, err error) error {
		if err != nil && !decodable(err) {
			return err
		}
		mediaType := contentType(part)
		if !strings.HasPrefix(mediaType, "text/") || isAttachment(part) {
			return nil
		}
		content, err := io.ReadAll(part.Body)
		if err != nil {
			return fmt.Errorf("read %s part: %w", mediaType, err)
		}
		text := string(content)
		if mediaType == "text/html" {
			text = html2text.HTML2Text(text)
		}
		sb.WriteString(norm.NFC.String(text))
		if !strings.HasSuffix(text, "\n") {
			sb.WriteByte('\n')
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("message %d: %w", m.Index, err)
	}
	return sb.String(), nil
}

// Parts returns the content type of every leaf part.
func (m *Message) Parts() ([]string, error) {
	var types []string
	err := m.walkLeaves(func(part *message.Entity) {
		types = append(types, contentType(part))
	})
	return types, err
}

// Attachments counts the leaf parts that are attachments: parts with an
// attachment disposition or a file name, and parts that are not text.
func (m *Message) Attachments() (int, error) {
	count := 0
	err := m.walkLeaves(func(part *message.Entity) {
		if isAttachment(part) || !strings.HasPrefix(contentType(part), "text/") {
			count++
		}
	})
	return count, err
}

func (m *Message) walkLeaves(fn func(*message.Entity)) error {
	if len(m.Raw) == 0 {
		return nil
	}
	ent, err := m.entity()
	if err != nil {
		return err
	}
	err = ent.Walk(func(_ []int, part *message.Entity, err error) error {
		if err != nil && !decodable(err) {
			return err
		}
		if !strings.HasPrefix(contentType(part), "multipart/") {
			fn(part)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("message %d: %w", m.Index, err)
	}
	return nil
}

func (m *Message) entity() (*message.Entity, error) {
	ent, err := message.Read(bytes.NewReader(m.Raw))
	if err != nil && !decodable(err) {
		return nil, fmt.Errorf("message %d: %w", m.Index, err)
	}
	return ent, nil
}

// decodable reports whether err still leaves a readable entity.
func decodable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

// contentType returns the media type of part, text/plain when absent.
func contentType(part *message.Entity) string {
	mediaType, _, _ := part.Header.ContentType()
	if mediaType == "" {
		return "text/plain"
	}
	return strings.ToLower(mediaType)
}

func isAttachment(part *message.Entity) bool {
	disp, params, _ := part.Header.ContentDisposition()
	if strings.EqualFold(disp, "attachment") || params["filename"] != "" {
		return true
	}
	_, ctParams, _ := part.Header.ContentType()
	return ctParams["name"] != ""
}

// splitRaw splits at the first blank line, CRLF or LF.
func splitRaw(raw []byte) (head, body []byte) {
	crlf := bytes.Index(raw, []byte("\r\n\r\n"))
	lf := bytes.Index(raw, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return raw[:crlf+2], raw[crlf+4:]
	case lf >= 0:
		return raw[:lf+1], raw[lf+2:]
	}
	return raw, nil
}
