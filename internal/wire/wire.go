// Package wire defines the message envelope exchanged with the relay daemon
// and the inner payload format exchanged between devices and the storage
// provider.
//
// The relay wraps everything in a small JSON envelope; the inner message is
// itself a JSON document carried as a string. Frames occasionally arrive
// with junk bytes prepended by the relay, and sometimes the inner payload is
// delivered bare, without the envelope; ParseFrame tolerates both.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/saleel/nymdrive/internal/common"
	"github.com/saleel/nymdrive/internal/models"
)

// Action enumerates every message kind understood by the sync engine.
// Dispatch sites must switch exhaustively over these values and ignore
// unknown actions explicitly, for forward compatibility.
type Action string

const (
	ActionStore             Action = "STORE"
	ActionFetch             Action = "FETCH"
	ActionRemove            Action = "REMOVE"
	ActionShare             Action = "SHARE"
	ActionAddDevice         Action = "ADD_DEVICE"
	ActionAddDeviceApproved Action = "ADD_DEVICE_APPROVED"
	ActionAddDeviceDenied   Action = "ADD_DEVICE_DENIED"
	ActionFileUpdate        Action = "FILE_UPDATE"
)

// Known reports whether a is one of the enumerated actions.
func (a Action) Known() bool {
	switch a {
	case ActionStore, ActionFetch, ActionRemove, ActionShare,
		ActionAddDevice, ActionAddDeviceApproved, ActionAddDeviceDenied,
		ActionFileUpdate:
		return true
	}
	return false
}

// Results carried in provider responses.
const (
	ResultSuccess = "SUCCESS"
	ResultError   = "ERROR"
)

// Envelope types understood by the relay daemon.
const (
	TypeSelfAddress = "selfAddress"
	TypeSend        = "send"
)

// Envelope is the outer frame exchanged with the relay daemon.
type Envelope struct {
	Type          string `json:"type"`
	Message       string `json:"message,omitempty"`
	Recipient     string `json:"recipient,omitempty"`
	Address       string `json:"address,omitempty"`
	WithReplySurb bool   `json:"withReplySurb"`
}

// Payload is the inner message. Action-specific fields are pointers or
// omitempty so each message carries only what its action needs.
type Payload struct {
	Action        Action `json:"action"`
	ActionID      string `json:"actionId,omitempty"`
	SenderAddress string `json:"senderAddress,omitempty"`

	// STORE request and FETCH response carry content; STORE, FETCH and
	// REMOVE all reference a content hash.
	Content string `json:"content,omitempty"`
	Hash    string `json:"hash,omitempty"`

	// SHARE fields.
	EncryptionKey string `json:"encryptionKey,omitempty"`
	Name          string `json:"name,omitempty"`
	Size          int64  `json:"size,omitempty"`
	Type          string `json:"type,omitempty"`

	// ADD_DEVICE_APPROVED snapshot.
	Files []models.SnapshotFile `json:"files,omitempty"`

	// FILE_UPDATE fields.
	FileID  string              `json:"fileId,omitempty"`
	Changes *models.FileChanges `json:"changes,omitempty"`

	// Provider response fields.
	Result     string `json:"result,omitempty"`
	StoredPath string `json:"storedPath,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Frame is a parsed inbound frame: either a self-address notice or a
// payload.
type Frame struct {
	SelfAddress string
	Payload     *Payload
}

// probe holds the union of envelope and payload fields needed to decide
// what an inbound frame is.
type probe struct {
	Type    string `json:"type"`
	Address string `json:"address"`
	Message string `json:"message"`
	Action  Action `json:"action"`
}

// ParseFrame parses an inbound frame from the relay.
//
// Leading junk bytes before the first '{' are discarded. A frame is either
// a self-address notice, an envelope whose message field holds the inner
// payload JSON, or a bare payload delivered without the envelope.
func ParseFrame(data []byte) (*Frame, error) {
	if i := bytes.IndexByte(data, '{'); i > 0 {
		data = data[i:]
	} else if i < 0 {
		return nil, fmt.Errorf("%w: no JSON object in frame", common.ErrParse)
	}

	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrParse, err)
	}

	if p.Type == TypeSelfAddress {
		return &Frame{SelfAddress: p.Address}, nil
	}

	var payload Payload
	if p.Action != "" {
		// Inner payload delivered bare.
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrParse, err)
		}
	} else {
		if p.Message == "" {
			return nil, fmt.Errorf("%w: frame carries no message", common.ErrParse)
		}
		if err := json.Unmarshal([]byte(p.Message), &payload); err != nil {
			return nil, fmt.Errorf("%w: inner message: %v", common.ErrParse, err)
		}
	}

	return &Frame{Payload: &payload}, nil
}

// EncodeSend wraps a payload in a send envelope addressed to recipient.
func EncodeSend(p *Payload, recipient string) ([]byte, error) {
	inner, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	return json.Marshal(Envelope{
		Type:          TypeSend,
		Message:       string(inner),
		Recipient:     recipient,
		WithReplySurb: false,
	})
}

// EncodeSelfAddressQuery builds the address handshake frame sent right
// after the relay connection opens.
func EncodeSelfAddressQuery() []byte {
	data, _ := json.Marshal(Envelope{Type: TypeSelfAddress})
	return data
}
