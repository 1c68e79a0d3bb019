package transport

import (
	"context"

	"github.com/saleel/nymdrive/internal/wire"
)

// Relay is the request/response surface of the relay connection consumed by
// the pipeline, the sync coordinator and the provider loop.
//
// Request blocks until a frame carrying the request's correlation id
// arrives. The relay offers no delivery guarantee, so a dropped reply
// blocks the caller until its context is canceled; callers that need a
// bound must supply one through ctx. Keeping the waiter mechanics behind
// this interface lets a timeout policy be injected later without touching
// call sites.
type Relay interface {
	// Request sends p to recipient and waits for the correlated response.
	Request(ctx context.Context, p *wire.Payload, recipient string) (*wire.Payload, error)

	// Send transmits p to recipient without registering a response waiter.
	// Used for SHARE, FILE_UPDATE notifications and replies to inbound
	// requests, none of which ever receive responses of their own.
	Send(ctx context.Context, p *wire.Payload, recipient string) error

	// SelfAddress returns this device's relay address, or "" before the
	// first address handshake completes.
	SelfAddress() string
}
