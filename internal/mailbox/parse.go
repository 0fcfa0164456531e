package mailbox

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/mailpat/internal/mail"
)

// Headers searched for the spam attribute, in order of preference.
var spamHeaders = []string{"X-Spam-Status", "X-Spam-Flag", "X-Spam"}

// Parse builds a Message from its raw RFC 5322 text. Malformed address and
// date fields are left empty rather than failing the whole message.
func Parse(raw []byte) (*Message, error) {
	ent, err := message.Read(bytes.NewReader(raw))
	if err != nil && !decodable(err) {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	h := gomail.Header{Header: ent.Header}
	env := Envelope{
		From:       addressList(h, "From"),
		Sender:     addressList(h, "Sender"),
		To:         addressList(h, "To"),
		Cc:         addressList(h, "Cc"),
		Subject:    text(h, "Subject"),
		Newsgroups: strings.TrimSpace(h.Get("Newsgroups")),
		Label:      text(h, "X-Label"),
		Keywords:   keywords(h),
	}
	env.MessageID, _ = h.MessageID()
	env.References, _ = h.MsgIDList("References")
	env.InReplyTo, _ = h.MsgIDList("In-Reply-To")
	env.Date, _ = h.Date()
	for _, key := range spamHeaders {
		if v := h.Get(key); v != "" {
			env.Spam = v
			break
		}
	}

	m := &Message{
		Envelope:   env,
		Crypto:     security(raw),
		ReceivedAt: env.Date,
		Raw:        raw,
	}
	return m, nil
}

func addressList(h gomail.Header, key string) []mail.Address {
	list, err := h.AddressList(key)
	if err != nil || len(list) == 0 {
		return nil
	}
	addrs := make([]mail.Address, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, mail.Address{
			Name:    norm.NFC.String(a.Name),
			Mailbox: a.Address,
		})
	}
	return addrs
}

// text returns the decoded, NFC-normalised value of a header field.
func text(h gomail.Header, key string) string {
	v, err := h.Text(key)
	if err != nil {
		v = h.Get(key)
	}
	return norm.NFC.String(v)
}

// keywords collects tags from the Keywords and X-Keywords fields.
func keywords(h gomail.Header) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, key := range []string{"Keywords", "X-Keywords"} {
		for _, kw := range strings.FieldsFunc(text(h, key), func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		}) {
			if !seen[kw] {
				seen[kw] = true
				tags = append(tags, kw)
			}
		}
	}
	return tags
}

// security derives the crypto state visible from the MIME structure.
// Signature validity cannot be known without verifying, so
// SecurityGoodSignature is never set here.
func security(raw []byte) mail.Security {
	ent, err := message.Read(bytes.NewReader(raw))
	if err != nil && !decodable(err) {
		return 0
	}

	var sec mail.Security
	_ = ent.Walk(func(_ []int, part *message.Entity, err error) error {
		if err != nil && !decodable(err) {
			return err
		}
		switch contentType(part) {
		case "multipart/signed":
			sec |= mail.SecuritySigned
		case "multipart/encrypted", "application/pkcs7-mime", "application/x-pkcs7-mime":
			sec |= mail.SecurityEncrypted
		case "application/pgp-keys":
			sec |= mail.SecurityPGPKey
		}
		return nil
	})
	return sec
}
