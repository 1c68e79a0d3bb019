package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saleel/nymdrive/internal/common"
	"github.com/saleel/nymdrive/internal/models"
)

func TestParseFrame_SelfAddress(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"selfAddress","address":"addr1.client"}`))
	require.NoError(t, err)
	assert.Equal(t, "addr1.client", f.SelfAddress)
	assert.Nil(t, f.Payload)
}

func TestParseFrame_EnvelopedPayload(t *testing.T) {
	inner := `{"action":"STORE","actionId":"a1","senderAddress":"dev1","hash":"h1","content":"c"}`
	frame, err := json.Marshal(Envelope{Type: "received", Message: inner})
	require.NoError(t, err)

	f, err := ParseFrame(frame)
	require.NoError(t, err)
	require.NotNil(t, f.Payload)
	assert.Equal(t, ActionStore, f.Payload.Action)
	assert.Equal(t, "a1", f.Payload.ActionID)
	assert.Equal(t, "dev1", f.Payload.SenderAddress)
	assert.Equal(t, "h1", f.Payload.Hash)
}

func TestParseFrame_BarePayload(t *testing.T) {
	f, err := ParseFrame([]byte(`{"action":"FETCH","actionId":"a2","hash":"h2"}`))
	require.NoError(t, err)
	require.NotNil(t, f.Payload)
	assert.Equal(t, ActionFetch, f.Payload.Action)
	assert.Equal(t, "h2", f.Payload.Hash)
}

func TestParseFrame_LeadingJunk(t *testing.T) {
	// The relay occasionally prepends garbage bytes to frames queued from
	// before the socket was up.
	f, err := ParseFrame([]byte("\x00\x01junk{\"type\":\"selfAddress\",\"address\":\"a\"}"))
	require.NoError(t, err)
	assert.Equal(t, "a", f.SelfAddress)
}

func TestParseFrame_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "no json object", data: "complete garbage"},
		{name: "truncated", data: `{"type":"send","message":`},
		{name: "no message no action", data: `{"type":"received"}`},
		{name: "bad inner json", data: `{"type":"received","message":"{"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrParse))
		})
	}
}

func TestEncodeSend_RoundTrip(t *testing.T) {
	p := &Payload{
		Action:        ActionFileUpdate,
		ActionID:      "id1",
		SenderAddress: "me",
		FileID:        "f1",
		Changes:       &models.FileChanges{Status: models.Ptr(models.StatusStored)},
	}

	data, err := EncodeSend(p, "peer1")
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeSend, env.Type)
	assert.Equal(t, "peer1", env.Recipient)
	assert.False(t, env.WithReplySurb)

	f, err := ParseFrame(data)
	require.NoError(t, err)
	require.NotNil(t, f.Payload)
	assert.Equal(t, "f1", f.Payload.FileID)
	require.NotNil(t, f.Payload.Changes)
	assert.Equal(t, models.StatusStored, *f.Payload.Changes.Status)
}

func TestEncodeSelfAddressQuery(t *testing.T) {
	data := EncodeSelfAddressQuery()
	assert.JSONEq(t, `{"type":"selfAddress","withReplySurb":false}`, string(data))
}

func TestAction_Known(t *testing.T) {
	for _, a := range []Action{ActionStore, ActionFetch, ActionRemove, ActionShare,
		ActionAddDevice, ActionAddDeviceApproved, ActionAddDeviceDenied, ActionFileUpdate} {
		assert.True(t, a.Known(), string(a))
	}
	assert.False(t, Action("FORMAT_DISK").Known())
}
