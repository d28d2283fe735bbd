package websocket

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(logger.New("error"))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receive(t *testing.T, s *Session) Message {
	t.Helper()
	select {
	case msg := <-s.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func joined(t *testing.T, hub *Hub, filter Filter) *Session {
	t.Helper()
	s := NewSession(hub, nil, filter, nil)
	hub.Join(s)
	welcome := receive(t, s)
	require.Equal(t, MessageWelcome, welcome.Type)
	return s
}

func assertSilent(t *testing.T, s *Session) {
	t.Helper()
	select {
	case extra := <-s.send:
		t.Fatalf("unexpected message: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func mustFilter(t *testing.T, vessels []string, minSeverity string) Filter {
	t.Helper()
	f, err := NewFilter(vessels, minSeverity)
	require.NoError(t, err)
	return f
}

func TestHub_WelcomeCarriesSubscription(t *testing.T) {
	hub := startHub(t)
	s := NewSession(hub, nil, mustFilter(t, []string{"v-2", "v-1"}, "HIGH"), nil)
	hub.Join(s)

	welcome := receive(t, s)
	info, ok := welcome.Data.(SubscriptionInfo)
	require.True(t, ok)
	assert.Equal(t, s.ID(), info.SessionID)
	assert.Equal(t, []string{"v-1", "v-2"}, info.VesselIDs)
	assert.Equal(t, "high", info.MinSeverity)
	assert.False(t, welcome.SentAt.IsZero())
}

func TestHub_FiltersByVesselAndSeverity(t *testing.T) {
	hub := startHub(t)

	all := joined(t, hub, Filter{})
	onlyV2 := joined(t, hub, mustFilter(t, []string{"v-2"}, ""))
	criticalOnly := joined(t, hub, mustFilter(t, nil, "critical"))
	assert.Equal(t, 3, hub.Subscribers())

	hub.PushVerdict(&dto.AnomalyVerdictDTO{VesselID: "v-1", ParameterName: "coolant_temperature", Severity: "high"})
	hub.PushAlert(&dto.AlertDTO{VesselID: "v-2", Level: "critical"})

	assert.Equal(t, MessageVerdict, receive(t, all).Type)
	assert.Equal(t, MessageAlert, receive(t, all).Type)

	got := receive(t, onlyV2)
	assert.Equal(t, MessageAlert, got.Type)
	assert.Equal(t, "v-2", got.VesselID)
	assertSilent(t, onlyV2)

	got = receive(t, criticalOnly)
	assert.Equal(t, "critical", got.Severity)
	assertSilent(t, criticalOnly)
}

func TestHub_SubscribeCommandChangesFilter(t *testing.T) {
	hub := startHub(t)
	s := joined(t, hub, Filter{})

	s.handleControl([]byte(`{"action":"subscribe","vesselIds":["v-9"],"minSeverity":"medium"}`))
	ack := receive(t, s)
	require.Equal(t, MessageSubscribed, ack.Type)
	assert.Equal(t, []string{"v-9"}, ack.Data.(SubscriptionInfo).VesselIDs)

	hub.PushVerdict(&dto.AnomalyVerdictDTO{VesselID: "v-1", Severity: "critical"})
	hub.PushVerdict(&dto.AnomalyVerdictDTO{VesselID: "v-9", Severity: "low"})
	hub.PushVerdict(&dto.AnomalyVerdictDTO{VesselID: "v-9", Severity: "medium"})
	got := receive(t, s)
	assert.Equal(t, "medium", got.Severity)
	assertSilent(t, s)
}

func TestHub_BadControlMessages(t *testing.T) {
	hub := startHub(t)
	s := joined(t, hub, Filter{})

	for _, raw := range []string{`not json`, `{"action":"unsubscribe"}`, `{"action":"subscribe","minSeverity":"apocalyptic"}`} {
		s.handleControl([]byte(raw))
		assert.Equal(t, MessageError, receive(t, s).Type, raw)
	}
}

func TestHub_LeaveClosesQueue(t *testing.T) {
	hub := startHub(t)
	s := joined(t, hub, Filter{})
	hub.Leave(s)

	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-s.send
	assert.False(t, open)
}

func TestHub_SlowSessionIsDisconnected(t *testing.T) {
	hub := startHub(t)
	joined(t, hub, Filter{})

	// никто не читает s.send: очередь сессии переполняется
	require.Eventually(t, func() bool {
		for i := 0; i < 16; i++ {
			hub.PushVerdict(&dto.AnomalyVerdictDTO{VesselID: "v-1", Severity: "low"})
		}
		return hub.Subscribers() == 0
	}, 3*time.Second, time.Millisecond)
	assert.Positive(t, hub.Dropped())
}

func TestFilterFromQuery(t *testing.T) {
	f, err := FilterFromQuery(url.Values{"vesselId": {"v-1, v-2", "v-3"}, "minSeverity": {"high"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"v-1", "v-2", "v-3"}, f.VesselList())
	assert.True(t, f.Matches("v-2", "critical"))
	assert.False(t, f.Matches("v-2", "medium"))
	assert.False(t, f.Matches("v-4", "critical"))

	_, err = FilterFromQuery(url.Values{"minSeverity": {"extreme"}})
	assert.Error(t, err)

	everything, err := FilterFromQuery(url.Values{})
	require.NoError(t, err)
	assert.True(t, everything.Matches("", "low"))
}
