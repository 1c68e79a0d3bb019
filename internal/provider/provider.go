// Package provider implements the relay-facing blob service: the
// counterpart every device talks to for STORE, FETCH and REMOVE. It is a
// thin adapter between the relay connection and a Storage backend.
package provider

import (
	"context"

	"github.com/saleel/nymdrive/internal/logging"
	"github.com/saleel/nymdrive/internal/transport"
	"github.com/saleel/nymdrive/internal/wire"
)

// Storage persists transmitted blob representations keyed by content hash.
type Storage interface {
	// Store persists content under hash and returns an opaque handle.
	Store(ctx context.Context, hash, content string) (string, error)
	// Fetch returns the content stored under hash.
	Fetch(ctx context.Context, hash string) (string, error)
	// Remove deletes the content stored under hash.
	Remove(ctx context.Context, hash string) error
}

// Transport is the slice of the relay client the responder consumes.
// Requests arrive through the receive handler; replies go out as
// fire-and-forget sends reusing the request's correlation id.
type Transport interface {
	Send(ctx context.Context, p *wire.Payload, recipient string) error
	SetReceiveHandler(transport.ReceiveHandler)
}

// Responder serves blob requests arriving over the relay.
type Responder struct {
	tr      Transport
	storage Storage
	log     logging.Logger
}

// New wires a Responder. Must run before the transport's Run loop begins
// delivering frames.
func New(tr Transport, storage Storage, log logging.Logger) *Responder {
	r := &Responder{
		tr:      tr,
		storage: storage,
		log:     log.With("component", "provider"),
	}
	tr.SetReceiveHandler(r.onReceive)
	return r
}

func (r *Responder) onReceive(ctx context.Context, p *wire.Payload) {
	switch p.Action {
	case wire.ActionStore:
		r.handleStore(ctx, p)
	case wire.ActionFetch:
		r.handleFetch(ctx, p)
	case wire.ActionRemove:
		r.handleRemove(ctx, p)
	default:
		r.log.Debug(ctx, "ignoring message", "action", p.Action, "sender", p.SenderAddress)
	}
}

func (r *Responder) handleStore(ctx context.Context, p *wire.Payload) {
	storedPath, err := r.storage.Store(ctx, p.Hash, p.Content)
	if err != nil {
		r.log.Error(ctx, "store failed", "hash", p.Hash, "error", err)
		r.replyError(ctx, p, err)
		return
	}
	r.log.Info(ctx, "blob stored", "hash", p.Hash, "sender", p.SenderAddress)
	r.reply(ctx, p, &wire.Payload{
		Action:     wire.ActionStore,
		Result:     wire.ResultSuccess,
		Hash:       p.Hash,
		StoredPath: storedPath,
	})
}

func (r *Responder) handleFetch(ctx context.Context, p *wire.Payload) {
	content, err := r.storage.Fetch(ctx, p.Hash)
	if err != nil {
		r.log.Error(ctx, "fetch failed", "hash", p.Hash, "error", err)
		r.replyError(ctx, p, err)
		return
	}
	r.reply(ctx, p, &wire.Payload{
		Action:  wire.ActionFetch,
		Result:  wire.ResultSuccess,
		Hash:    p.Hash,
		Content: content,
	})
}

func (r *Responder) handleRemove(ctx context.Context, p *wire.Payload) {
	if err := r.storage.Remove(ctx, p.Hash); err != nil {
		r.log.Error(ctx, "remove failed", "hash", p.Hash, "error", err)
		r.replyError(ctx, p, err)
		return
	}
	r.log.Info(ctx, "blob removed", "hash", p.Hash, "sender", p.SenderAddress)
	r.reply(ctx, p, &wire.Payload{
		Action: wire.ActionRemove,
		Result: wire.ResultSuccess,
		Hash:   p.Hash,
	})
}

func (r *Responder) reply(ctx context.Context, req, resp *wire.Payload) {
	resp.ActionID = req.ActionID
	if err := r.tr.Send(ctx, resp, req.SenderAddress); err != nil {
		r.log.Warn(ctx, "reply not delivered", "action", resp.Action, "recipient", req.SenderAddress, "error", err)
	}
}

func (r *Responder) replyError(ctx context.Context, req *wire.Payload, err error) {
	r.reply(ctx, req, &wire.Payload{
		Action: req.Action,
		Result: wire.ResultError,
		Hash:   req.Hash,
		Error:  err.Error(),
	})
}
