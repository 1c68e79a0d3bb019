package sync

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/saleel/nymdrive/internal/common"
	"github.com/saleel/nymdrive/internal/models"
	"github.com/saleel/nymdrive/internal/store"
	"github.com/saleel/nymdrive/internal/wire"
)

// Approver is the human-decision callback surfaced when a peer asks to join
// this device's registry. The coordinator suspends on it with no timeout of
// its own; the supplied context is the only bound.
type Approver interface {
	ApproveDevice(ctx context.Context, address string) (bool, error)
}

// ApproverFunc adapts a function to the Approver interface.
type ApproverFunc func(ctx context.Context, address string) (bool, error)

func (f ApproverFunc) ApproveDevice(ctx context.Context, address string) (bool, error) {
	return f(ctx, address)
}

// AddDevice runs the initiator side of the join protocol against a peer
// address supplied out of band. On approval the peer's sanitized file
// snapshot is ingested and the peer is recorded in the local registry; on
// denial nothing changes and ErrDeviceDenied is returned.
//
// Registration is asymmetric: each side records the other only from its own
// vantage point, so the responder already registered us at approval time.
func (c *Coordinator) AddDevice(ctx context.Context, address string) error {
	resp, err := c.tr.Request(ctx, &wire.Payload{Action: wire.ActionAddDevice}, address)
	if err != nil {
		return fmt.Errorf("requesting device join: %w", err)
	}

	switch resp.Action {
	case wire.ActionAddDeviceApproved:
		c.ingestApproval(ctx, address, resp.Files)
		return nil
	case wire.ActionAddDeviceDenied:
		return fmt.Errorf("join rejected by %s: %w", address, common.ErrDeviceDenied)
	default:
		return fmt.Errorf("unexpected join response %s from %s", resp.Action, address)
	}
}

// ingestApproval records the approving peer and bulk-inserts its snapshot.
func (c *Coordinator) ingestApproval(ctx context.Context, address string, files []models.SnapshotFile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.InsertSnapshot(ctx, files); err != nil {
		c.log.Error(ctx, "ingesting snapshot failed", "device", address, "error", err)
		return
	}
	if err := c.store.AddDevice(ctx, address); err != nil {
		c.log.Error(ctx, "registering device failed", "device", address, "error", err)
		return
	}
	c.log.Info(ctx, "device joined", "device", address, "files", len(files))
}

// handleAddDevice runs the responder side: surface the request to the
// approver, and reply with either a sanitized snapshot of every local file
// record or a bare denial. The reply reuses the request's correlation id so
// it resolves the initiator's wait.
func (c *Coordinator) handleAddDevice(ctx context.Context, p *wire.Payload) {
	approved, err := c.approver.ApproveDevice(ctx, p.SenderAddress)
	if err != nil {
		c.log.Error(ctx, "device approval failed", "device", p.SenderAddress, "error", err)
		approved = false
	}

	if !approved {
		err := c.tr.Send(ctx, &wire.Payload{
			Action:   wire.ActionAddDeviceDenied,
			ActionID: p.ActionID,
		}, p.SenderAddress)
		if err != nil {
			c.log.Warn(ctx, "denial not delivered", "device", p.SenderAddress, "error", err)
		}
		return
	}

	c.mu.Lock()
	files, err := c.store.FindFiles(ctx, store.Filter{})
	if err != nil {
		c.mu.Unlock()
		c.log.Error(ctx, "building snapshot failed", "error", err)
		return
	}
	snapshot := lo.Map(files, func(f *models.FileRecord, _ int) models.SnapshotFile {
		return f.Sanitized()
	})
	if err := c.store.AddDevice(ctx, p.SenderAddress); err != nil {
		c.mu.Unlock()
		c.log.Error(ctx, "registering device failed", "device", p.SenderAddress, "error", err)
		return
	}
	c.mu.Unlock()

	err = c.tr.Send(ctx, &wire.Payload{
		Action:   wire.ActionAddDeviceApproved,
		ActionID: p.ActionID,
		Files:    snapshot,
	}, p.SenderAddress)
	if err != nil {
		c.log.Warn(ctx, "approval not delivered", "device", p.SenderAddress, "error", err)
		return
	}
	c.log.Info(ctx, "device approved", "device", p.SenderAddress, "files", len(snapshot))
}
