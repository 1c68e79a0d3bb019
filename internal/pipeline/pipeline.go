// Package pipeline turns local files into content-addressed encrypted blobs
// and moves them through the remote blob service: encrypt → hash → STORE on
// the way up, FETCH → decrypt on the way down.
package pipeline

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/saleel/nymdrive/internal/common"
	"github.com/saleel/nymdrive/internal/cryptox"
	"github.com/saleel/nymdrive/internal/logging"
	"github.com/saleel/nymdrive/internal/models"
	"github.com/saleel/nymdrive/internal/shared"
	"github.com/saleel/nymdrive/internal/store"
	"github.com/saleel/nymdrive/internal/transport"
	"github.com/saleel/nymdrive/internal/wire"
)

// Pipeline uploads, downloads and removes file content through the relay.
type Pipeline struct {
	relay    transport.Relay
	store    *store.Store
	log      logging.Logger
	provider string // relay address of the blob service
}

// New returns a Pipeline that talks to the blob service at the given relay
// address.
func New(relay transport.Relay, st *store.Store, log logging.Logger, provider string) *Pipeline {
	return &Pipeline{
		relay:    relay,
		store:    st,
		log:      log.With("component", "pipeline"),
		provider: provider,
	}
}

// Store encrypts and uploads the record's origin file, returning the
// content hash the record was reassigned to.
//
// A fresh key and IV are minted on every call, including re-uploads of the
// same record, so the content address differs between attempts; the upload
// stays logically idempotent at the blob service because each attempt is a
// self-contained blob. Files under the Public path are transmitted
// unencrypted (base64 only). The record's id is reassigned to the content
// hash before the STORE request goes out; on acknowledgment the record
// becomes STORED with the service's returned handle. On any error the
// record's status is left untouched so the next reconnect drain retries it.
func (p *Pipeline) Store(ctx context.Context, file *models.FileRecord) (string, error) {
	plaintext, err := os.ReadFile(file.SystemPath)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", file.SystemPath, err)
	}

	var content, keyHex string
	if file.Path == common.PathPublic {
		content = cryptox.EncodePublic(plaintext)
	} else {
		key, err := cryptox.GenerateKey()
		if err != nil {
			return "", err
		}
		keyHex = hex.EncodeToString(key)
		content, err = cryptox.EncryptContent(plaintext, key)
		shared.WipeByteArray(key)
		if err != nil {
			return "", fmt.Errorf("encrypting %q: %w", file.Name, err)
		}
	}

	hash := cryptox.HashContent(content)

	// Reassign the provisional id to the content hash; every later
	// reference goes through the hash.
	changes := &models.FileChanges{
		ID:   models.Ptr(hash),
		Hash: models.Ptr(hash),
	}
	if keyHex != "" {
		changes.EncryptionKey = models.Ptr(keyHex)
	}
	if err := p.store.UpdateFile(ctx, file.ID, changes); err != nil {
		return "", err
	}

	resp, err := p.relay.Request(ctx, &wire.Payload{
		Action:  wire.ActionStore,
		Content: content,
		Hash:    hash,
	}, p.provider)
	if err != nil {
		return "", fmt.Errorf("storing %q: %w", file.Name, err)
	}
	if resp.Result != wire.ResultSuccess {
		return "", fmt.Errorf("storing %q: %s: %w", file.Name, resp.Error, common.ErrStorage)
	}

	p.log.Info(ctx, "file stored", "name", file.Name, "hash", hash)

	if err := p.store.UpdateFile(ctx, hash, &models.FileChanges{
		Status:     models.Ptr(models.StatusStored),
		StoredPath: models.Ptr(resp.StoredPath),
	}); err != nil {
		return "", err
	}
	return hash, nil
}

// Fetch downloads and decrypts the content for an existing record and
// returns the plaintext. Persisting the bytes is the cache manager's job.
func (p *Pipeline) Fetch(ctx context.Context, hash string) ([]byte, error) {
	file, err := p.store.FindByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	resp, err := p.relay.Request(ctx, &wire.Payload{
		Action: wire.ActionFetch,
		Hash:   hash,
	}, p.provider)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", hash, err)
	}
	if resp.Result != wire.ResultSuccess {
		return nil, fmt.Errorf("fetching %q: %s: %w", hash, resp.Error, common.ErrStorage)
	}

	if file.Path == common.PathPublic {
		return cryptox.DecodePublic(resp.Content)
	}

	key, err := hex.DecodeString(file.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decoding key for %q: %w", hash, err)
	}
	defer shared.WipeByteArray(key)
	return cryptox.DecryptContent(resp.Content, key)
}

// Remove deletes the blob from the service. The caller removes the local
// record only after a successful acknowledgment.
func (p *Pipeline) Remove(ctx context.Context, hash string) error {
	resp, err := p.relay.Request(ctx, &wire.Payload{
		Action: wire.ActionRemove,
		Hash:   hash,
	}, p.provider)
	if err != nil {
		return fmt.Errorf("removing %q: %w", hash, err)
	}
	if resp.Result != wire.ResultSuccess {
		return fmt.Errorf("removing %q: %s: %w", hash, resp.Error, common.ErrStorage)
	}
	return nil
}
