// Package command holds the wire grammar of the line-oriented file protocol,
// shared by the server handler and the native client.
//
// A session is a credential line ("<user> <pass>"), an AUTH reply, a single
// command line and its response. Nothing on the wire carries a length: the
// end of a message is the peer going quiet.
package command

import (
	"errors"
	"strings"
)

// Verb identifies a command.
type Verb string

const (
	VerbUpload    Verb = "UPLOAD"
	VerbDownload  Verb = "DOWNLOAD"
	VerbList      Verb = "LIST"
	VerbDelete    Verb = "DELETE"
	VerbListTrash Verb = "LIST_TRASH"
	VerbRestore   Verb = "RESTORE"
)

// ErrUnknownCommand is returned by Parse for any line outside the grammar.
var ErrUnknownCommand = errors.New("unknown command")

// prefixVerbs take the rest of the line, verbatim, as their argument.
var prefixVerbs = []Verb{VerbUpload, VerbDownload, VerbDelete, VerbRestore}

// Command is a parsed command line.
type Command struct {
	Verb Verb
	Arg  string
}

// String renders the command as it travels on the wire.
func (c Command) String() string {
	if c.Arg == "" {
		return string(c.Verb)
	}
	return string(c.Verb) + " " + c.Arg
}

// Parse decodes one command line. Trailing CR and LF are ignored. The
// argument of a prefix verb is everything after the single space, so file
// names may contain spaces. LIST and LIST_TRASH must match exactly.
func Parse(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")

	for _, v := range prefixVerbs {
		prefix := string(v) + " "
		if strings.HasPrefix(line, prefix) {
			return Command{Verb: v, Arg: line[len(prefix):]}, nil
		}
	}

	switch Verb(line) {
	case VerbList:
		return Command{Verb: VerbList}, nil
	case VerbListTrash:
		return Command{Verb: VerbListTrash}, nil
	}
	return Command{}, ErrUnknownCommand
}

// ParseCredentials splits a credential line into its first two
// whitespace-delimited fields.
func ParseCredentials(line string) (username, password string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

// FormatCredentials builds the credential line a client sends first.
func FormatCredentials(username, password string) string {
	return username + " " + password
}
