// Package mail defines the read-only view of messages and mailboxes that
// search patterns are evaluated against.
//
// The pattern evaluator never parses messages itself. It consumes the
// Message and Mailbox interfaces declared here; package mailbox provides the
// in-memory implementation used by the CLI and the tests, and other
// front-ends (an IMAP cache, a notmuch database) can provide their own.
//
// Message covers the envelope and per-message state. Content access (raw
// header, body, MIME structure) is part of the same interface but may be
// expensive; evaluators only call it for full-message operators.
//
// Mailbox covers everything that is relative to other messages: thread
// links and the thread-level flags (collapsed, duplicate, broken,
// unreferenced).
package mail
