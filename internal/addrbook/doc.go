// Package addrbook holds what the user has told us about addresses: which
// ones are theirs, which are mailing lists, aliases and named groups.
//
// Book backs the "~p", "~P", "~l", "~u" operators and the "@" modifier;
// Groups backs "%" operands.
package addrbook
