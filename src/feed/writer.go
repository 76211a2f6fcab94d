package feed

import (
	"context"

	"github.com/mosaicnetworks/halo/src/credentials"
)

// Writer appends credentials to a feed. Write returns once the credential is
// durably stored; failures are returned as is and never retried.
type Writer interface {
	Write(ctx context.Context, c *credentials.Credential) error
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(ctx context.Context, c *credentials.Credential) error

// Write implements Writer.
func (f WriterFunc) Write(ctx context.Context, c *credentials.Credential) error {
	return f(ctx, c)
}
