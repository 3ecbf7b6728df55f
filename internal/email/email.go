// Package email delivers reviewer invitations. SMTP talks to a real relay;
// NoEmail is wired explicitly when delivery is disabled.
package email

import (
	"context"
)

type Sender interface {
	Send(ctx context.Context, address, subject, body string) error
}

type NoEmail struct{}

func (NoEmail) Send(context.Context, string, string, string) error {
	return nil
}
