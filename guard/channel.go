// Package guard delivers Steam Guard codes typed by a person (or fetched by some
// other out-of-band process) to a session that is blocked waiting for them.
package guard

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// Kind distinguishes the two code prompts a session can raise.
type Kind int

const (
	// TwoFactorKind is a code from the mobile authenticator app.
	TwoFactorKind Kind = iota
	// EmailKind is a code mailed to the account's address.
	EmailKind
)

func (k Kind) String() string {
	if k == EmailKind {
		return "email"
	}
	return "two-factor"
}

var ErrCancelled = eris.New("waiting for guard code was cancelled")

// Channel is a single slot holding at most one pending code. Fill never blocks and
// Wait blocks until a code is filled or the context ends.
type Channel struct {
	kind Kind
	slot chan string
}

func NewChannel(kind Kind) *Channel {
	return &Channel{kind: kind, slot: make(chan string, 1)}
}

func (c *Channel) Kind() Kind {
	return c.kind
}

// Fill hands a code to the waiter. It returns false when the code is blank or a code
// is already pending.
func (c *Channel) Fill(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}

	select {
	case c.slot <- code:
		return true
	default:
		return false
	}
}

// Wait takes the pending code, blocking until one is filled.
func (c *Channel) Wait(ctx context.Context) (string, error) {
	select {
	case code := <-c.slot:
		return code, nil
	case <-ctx.Done():
		return "", eris.Wrapf(ErrCancelled, "%s code: %v", c.kind, ctx.Err())
	}
}

// Drain discards a code filled for a prompt that is no longer pending.
func (c *Channel) Drain() {
	select {
	case <-c.slot:
	default:
	}
}
