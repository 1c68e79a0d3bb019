// Package sync drives the file synchronization engine: it consumes
// transport lifecycle events, dispatches inbound peer messages, runs the
// device-join protocol and exposes the local file operations.
package sync

import (
	"context"
	stdsync "sync"

	"github.com/saleel/nymdrive/internal/cache"
	"github.com/saleel/nymdrive/internal/common"
	"github.com/saleel/nymdrive/internal/logging"
	"github.com/saleel/nymdrive/internal/models"
	"github.com/saleel/nymdrive/internal/pipeline"
	"github.com/saleel/nymdrive/internal/store"
	"github.com/saleel/nymdrive/internal/transport"
	"github.com/saleel/nymdrive/internal/wire"
)

// Transport is the slice of the relay client the coordinator consumes.
type Transport interface {
	transport.Relay
	Events() <-chan transport.Event
	SetReceiveHandler(transport.ReceiveHandler)
}

// Coordinator owns the metadata store for the local device identity and is
// the only component that mutates it in response to peer messages.
type Coordinator struct {
	tr       Transport
	store    *store.Store
	pipe     *pipeline.Pipeline
	cache    *cache.Manager
	approver Approver
	log      logging.Logger

	// mu serializes check-then-act sequences over the store and the
	// device registry. It is never held across a relay round trip.
	mu stdsync.Mutex
}

// New wires a Coordinator. Start registers the receive handler, so New must
// run before the transport's Run loop begins delivering frames.
func New(tr Transport, st *store.Store, pipe *pipeline.Pipeline, cm *cache.Manager, approver Approver, log logging.Logger) *Coordinator {
	c := &Coordinator{
		tr:       tr,
		store:    st,
		pipe:     pipe,
		cache:    cm,
		approver: approver,
		log:      log.With("component", "sync"),
	}
	tr.SetReceiveHandler(c.onReceive)
	return c
}

// Run consumes transport lifecycle events until ctx is canceled. It is the
// single subscriber of the event channel.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.tr.Events():
			if !ok {
				return nil
			}
			switch ev.Type {
			case transport.EventConnected:
				c.onConnected(ctx, ev.Address)
			case transport.EventDisconnected:
				c.log.Info(ctx, "relay disconnected")
			}
		}
	}
}

// onConnected opens the store scoped to this device's relay address,
// discards the previous session's cache and resubmits every upload the
// last session left unfinished.
func (c *Coordinator) onConnected(ctx context.Context, address string) {
	c.log.Info(ctx, "relay connected", "address", address)

	c.store.Open(ctx, address)

	if err := c.cache.Sweep(ctx); err != nil {
		c.log.Error(ctx, "cache sweep failed", "error", err)
	}
	c.drainPending(ctx)
}

// drainPending resubmits every PENDING record through the pipeline. This is
// the system's only retry mechanism: a record that failed mid-upload stays
// PENDING and is picked up again on the next reconnect. Folders and records
// shared by other devices have no origin bytes to upload and are skipped.
func (c *Coordinator) drainPending(ctx context.Context) {
	pending, err := c.store.FindFiles(ctx, store.Filter{
		Status: models.Ptr(models.StatusPending),
	})
	if err != nil {
		c.log.Error(ctx, "listing pending uploads failed", "error", err)
		return
	}
	for _, f := range pending {
		if f.IsFolder() || f.Path == common.PathSharedWithMe {
			continue
		}
		if _, err := c.upload(ctx, f); err != nil {
			c.log.Error(ctx, "resubmitting upload failed", "name", f.Name, "error", err)
		}
	}
}

// upload pushes one record through the pipeline and, once STORED, notifies
// every registered device.
func (c *Coordinator) upload(ctx context.Context, f *models.FileRecord) (*models.FileRecord, error) {
	hash, err := c.pipe.Store(ctx, f)
	if err != nil {
		return nil, err
	}
	stored, err := c.store.FindByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	c.broadcastChange(ctx, stored.ID, stored.Sanitized().Changes())
	return stored, nil
}

// broadcastChange sends a FILE_UPDATE to every address in the device
// registry, sequentially so at most one send is in flight at a time.
func (c *Coordinator) broadcastChange(ctx context.Context, fileID string, changes *models.FileChanges) {
	devices, err := c.store.Devices(ctx)
	if err != nil {
		c.log.Error(ctx, "listing devices failed", "error", err)
		return
	}
	for _, d := range devices {
		err := c.tr.Send(ctx, &wire.Payload{
			Action:  wire.ActionFileUpdate,
			FileID:  fileID,
			Changes: changes,
		}, d.Address)
		if err != nil {
			c.log.Warn(ctx, "file update not delivered", "device", d.Address, "error", err)
		}
	}
}

// onReceive dispatches an unsolicited inbound payload. STORE, FETCH and
// REMOVE are provider-side requests and never arrive at a device; denials
// outside an active join wait carry nothing to act on. Unknown actions are
// dropped for forward compatibility.
func (c *Coordinator) onReceive(ctx context.Context, p *wire.Payload) {
	switch p.Action {
	case wire.ActionShare:
		c.handleShare(ctx, p)
	case wire.ActionAddDevice:
		c.handleAddDevice(ctx, p)
	case wire.ActionAddDeviceApproved:
		// A replayed approval outside an active join wait is a fresh
		// device-approved ingestion, not an error.
		c.ingestApproval(ctx, p.SenderAddress, p.Files)
	case wire.ActionFileUpdate:
		c.handleFileUpdate(ctx, p)
	case wire.ActionStore, wire.ActionFetch, wire.ActionRemove, wire.ActionAddDeviceDenied:
		c.log.Debug(ctx, "ignoring message", "action", p.Action, "sender", p.SenderAddress)
	default:
		c.log.Debug(ctx, "ignoring unknown action", "action", p.Action, "sender", p.SenderAddress)
	}
}

// handleShare ingests a file shared by a peer. Ingestion is idempotent by
// name under the SharedWithMe path; on first sight the record is inserted
// STORED and the share is forwarded to every registered device. The
// forward is not suppressed for the original sender, whose own ingestion
// dedupes the redundant notification.
func (c *Coordinator) handleShare(ctx context.Context, p *wire.Payload) {
	c.mu.Lock()
	existing, err := c.store.FindFiles(ctx, store.Filter{Path: models.Ptr(common.PathSharedWithMe)})
	if err != nil {
		c.mu.Unlock()
		c.log.Error(ctx, "share lookup failed", "error", err)
		return
	}
	for _, f := range existing {
		if f.Name == p.Name {
			c.mu.Unlock()
			return
		}
	}

	rec := &models.FileRecord{
		ID:            p.Hash,
		Name:          p.Name,
		Path:          common.PathSharedWithMe,
		Size:          p.Size,
		Type:          p.Type,
		Status:        models.StatusStored,
		EncryptionKey: p.EncryptionKey,
		Hash:          p.Hash,
	}
	if err := c.store.Insert(ctx, rec); err != nil {
		c.mu.Unlock()
		c.log.Error(ctx, "share insert failed", "name", p.Name, "error", err)
		return
	}
	c.mu.Unlock()

	c.log.Info(ctx, "file shared with this device", "name", p.Name, "sender", p.SenderAddress)

	devices, err := c.store.Devices(ctx)
	if err != nil {
		c.log.Error(ctx, "listing devices failed", "error", err)
		return
	}
	for _, d := range devices {
		err := c.tr.Send(ctx, &wire.Payload{
			Action:        wire.ActionShare,
			EncryptionKey: p.EncryptionKey,
			Hash:          p.Hash,
			Name:          p.Name,
			Size:          p.Size,
			Type:          p.Type,
		}, d.Address)
		if err != nil {
			c.log.Warn(ctx, "share not forwarded", "device", d.Address, "error", err)
		}
	}
}

// handleFileUpdate blind-upserts the carried fields. There is no causal
// ordering check: the relay offers no total order and updates carry no
// clock, so concurrent writes from different devices resolve by arrival
// order.
func (c *Coordinator) handleFileUpdate(ctx context.Context, p *wire.Payload) {
	if p.FileID == "" || p.Changes == nil {
		c.log.Warn(ctx, "file update missing id or changes", "sender", p.SenderAddress)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.UpdateFile(ctx, p.FileID, p.Changes); err != nil {
		c.log.Error(ctx, "applying file update failed", "fileId", p.FileID, "error", err)
	}
}
