package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SentiPulse/internal/domain/models"
	"SentiPulse/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotStub struct{}

func (snapshotStub) Snapshot(_ context.Context, ticker string) (*models.Snapshot, error) {
	return &models.Snapshot{Instrument: &models.Instrument{Ticker: ticker}}, nil
}

func dial(t *testing.T, srv *httptest.Server, ticker string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?ticker=" + ticker
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	var e models.Event
	require.NoError(t, json.Unmarshal(b, &e))
	return e
}

func TestHubFansOutByTicker(t *testing.T) {
	hub := NewHub(snapshotStub{}, testutil.NewMetrics(), nil, Config{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, r.URL.Query().Get("ticker"))
	}))
	defer srv.Close()
	defer hub.Close()

	aapl := dial(t, srv, "AAPL")
	all := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	snap := readEvent(t, aapl)
	assert.Equal(t, models.EventSnapshot, snap.Name)
	assert.Equal(t, "AAPL", snap.Ticker)

	require.NoError(t, hub.Deliver(context.Background(), models.NewEvent(models.EventKPIsUpdate, "MSFT", nil)))
	require.NoError(t, hub.Deliver(context.Background(), models.NewEvent(models.EventKPIsUpdate, "AAPL", nil)))

	got := readEvent(t, aapl)
	assert.Equal(t, "AAPL", got.Ticker)

	assert.Equal(t, "MSFT", readEvent(t, all).Ticker)
	assert.Equal(t, "AAPL", readEvent(t, all).Ticker)
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub(nil, testutil.NewMetrics(), nil, Config{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, "")
	}))
	defer srv.Close()

	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Close())
	assert.NoError(t, hub.Deliver(context.Background(), models.NewEvent(models.EventNewsNew, "AAPL", nil)))
}
