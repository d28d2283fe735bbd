package nats

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStreams часть JetStreamManager, которую трогает ensureStream
type fakeStreams struct {
	nats.JetStreamManager
	info    *nats.StreamInfo
	infoErr error
	added   *nats.StreamConfig
	updated *nats.StreamConfig
}

func (f *fakeStreams) StreamInfo(string, ...nats.JSOpt) (*nats.StreamInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeStreams) AddStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.added = cfg
	return &nats.StreamInfo{Config: *cfg}, nil
}

func (f *fakeStreams) UpdateStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.updated = cfg
	return &nats.StreamInfo{Config: *cfg}, nil
}

func TestStreamConfig_Defaults(t *testing.T) {
	cfg := streamConfig(Config{SubjectPrefix: "fleet"}.withDefaults())

	assert.Equal(t, StreamName, cfg.Name)
	assert.Equal(t, []string{"fleet.alerts.>"}, cfg.Subjects)
	assert.Equal(t, 7*24*time.Hour, cfg.MaxAge)
	assert.Equal(t, 2*time.Minute, cfg.Duplicates)
	assert.Equal(t, nats.FileStorage, cfg.Storage)
}

func TestEnsureStream(t *testing.T) {
	want := streamConfig(Config{}.withDefaults())

	t.Run("creates missing stream", func(t *testing.T) {
		js := &fakeStreams{infoErr: nats.ErrStreamNotFound}
		require.NoError(t, ensureStream(js, want))
		require.NotNil(t, js.added)
		assert.Equal(t, []string{"vessel.alerts.>"}, js.added.Subjects)
	})

	t.Run("extends subjects of existing stream", func(t *testing.T) {
		js := &fakeStreams{info: &nats.StreamInfo{Config: nats.StreamConfig{Name: StreamName, Subjects: []string{"legacy.alerts.>"}}}}
		require.NoError(t, ensureStream(js, want))
		require.NotNil(t, js.updated)
		assert.Equal(t, []string{"legacy.alerts.>", "vessel.alerts.>"}, js.updated.Subjects)
		assert.Nil(t, js.added)
	})

	t.Run("leaves matching stream alone", func(t *testing.T) {
		js := &fakeStreams{info: &nats.StreamInfo{Config: *want}}
		require.NoError(t, ensureStream(js, want))
		assert.Nil(t, js.updated)
	})

	t.Run("lookup failure surfaces", func(t *testing.T) {
		js := &fakeStreams{infoErr: errors.New("jetstream not enabled")}
		assert.ErrorContains(t, ensureStream(js, want), "jetstream not enabled")
	})
}

func TestEncodeMessage(t *testing.T) {
	msg, err := encodeMessage(port.BrokerMessage{
		Subject: "vessel.alerts.critical",
		ID:      "alert-1",
		Headers: map[string]string{"Vessel-Id": "v-3"},
		Body:    map[string]string{"level": "critical"},
	})
	require.NoError(t, err)

	assert.Equal(t, "vessel.alerts.critical", msg.Subject)
	assert.Equal(t, "alert-1", msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, "v-3", msg.Header.Get("Vessel-Id"))
	assert.Equal(t, "application/json", msg.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	assert.Equal(t, "critical", body["level"])

	_, err = encodeMessage(port.BrokerMessage{Body: 1})
	assert.Error(t, err)
	_, err = encodeMessage(port.BrokerMessage{Subject: "s", Body: make(chan int)})
	assert.Error(t, err)
}
