package match

import "github.com/roach88/mailpat/internal/mail"

// Directory knows who the user is and which addresses are mailing lists.
type Directory interface {
	// IsMe reports whether addr is one of the user's own addresses.
	IsMe(addr mail.Address) bool
	// IsList reports whether addr is a known mailing list.
	IsList(addr mail.Address) bool
	// IsSubscribed reports whether addr is a mailing list the user is
	// subscribed to.
	IsSubscribed(addr mail.Address) bool
}

// AliasLookup reports whether an address is reachable through an alias.
type AliasLookup interface {
	IsAlias(addr mail.Address) bool
}

// emptyDirectory knows nothing; it is used when no Directory is configured.
type emptyDirectory struct{}

func (emptyDirectory) IsMe(mail.Address) bool         { return false }
func (emptyDirectory) IsList(mail.Address) bool       { return false }
func (emptyDirectory) IsSubscribed(mail.Address) bool { return false }

// scan applies pred to every address of lists in order.
//
// With all unset it reports whether any address satisfies pred; with all
// set, whether every address does. An empty set of addresses satisfies
// "all" and fails "any".
func scan(all bool, pred func(mail.Address) bool, lists ...[]mail.Address) bool {
	for _, list := range lists {
		for _, addr := range list {
			if pred(addr) != all {
				return !all
			}
		}
	}
	return all
}

// IsListRecipient reports whether the message is addressed (To or Cc) to
// a known mailing list. With all set, every recipient must be a list.
func IsListRecipient(dir Directory, all bool, msg mail.Message) bool {
	return scan(all, dir.IsList, msg.To(), msg.Cc())
}

// IsSubscribedListRecipient reports whether the message is addressed
// (To or Cc) to a subscribed mailing list. With all set, every recipient
// must be one.
func IsSubscribedListRecipient(dir Directory, all bool, msg mail.Message) bool {
	return scan(all, dir.IsSubscribed, msg.To(), msg.Cc())
}

// IsPersonalRecipient reports whether the message is addressed (To or Cc)
// to the user.
func IsPersonalRecipient(dir Directory, all bool, msg mail.Message) bool {
	return scan(all, dir.IsMe, msg.To(), msg.Cc())
}

// IsPersonalFrom reports whether the message was sent by the user.
func IsPersonalFrom(dir Directory, all bool, msg mail.Message) bool {
	return scan(all, dir.IsMe, msg.From())
}
