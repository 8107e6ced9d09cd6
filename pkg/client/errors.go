package client

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed means the server did not answer AUTH OK.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNoAck means the server stayed silent where a reply was expected.
	ErrNoAck = errors.New("no acknowledgement from server")

	// ErrRemoteNotFound means the server has no such file.
	ErrRemoteNotFound = errors.New("file not found on server")
)

// ReplyError is an unexpected text reply from the server.
type ReplyError struct {
	Op    string
	Reply string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s: server replied %q", e.Op, e.Reply)
}
