package ws_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tomasbasham/clinic"
	"github.com/tomasbasham/clinic/internal/ws"
)

var _ clinic.Observer = (*ws.Hub)(nil)

func startHub(t *testing.T) (*ws.Hub, string) {
	t.Helper()

	hub := ws.NewHub(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()

	e := echo.New()
	e.GET("/ws", ws.ServeWS(hub))
	srv := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, hub *ws.Hub, url string, want int) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() < want {
		if time.Now().After(deadline) {
			t.Fatalf("client was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) ws.Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var e ws.Event
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func TestHub_Broadcast(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t)
	first := dial(t, hub, url, 1)
	second := dial(t, hub, url, 2)

	hub.OnStatusChange("Dr. Joshua", "serving [urgent] Ana (ID:1)")
	hub.OnLog("Registered: [urgent] Ana (ID:1)")

	for i, conn := range []*websocket.Conn{first, second} {
		status := readEvent(t, conn)
		if status.Type != "status" || status.Doctor != "Dr. Joshua" || status.Status != "serving [urgent] Ana (ID:1)" {
			t.Errorf("client %d: unexpected status event: %+v", i, status)
		}

		log := readEvent(t, conn)
		if log.Type != "log" || log.Message != "Registered: [urgent] Ana (ID:1)" {
			t.Errorf("client %d: unexpected log event: %+v", i, log)
		}
		if log.ID == status.ID {
			t.Errorf("client %d: expected distinct event ids", i)
		}
	}
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t)
	conn := dial(t, hub, url, 1)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected closed client to be unregistered, got: %d clients", hub.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	t.Parallel()

	// Without a running hub loop nothing drains the broadcast buffer.
	hub := ws.NewHub(zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 1000 {
			hub.OnLog("flood")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked")
	}
	if hub.Dropped() == 0 {
		t.Error("expected events to be dropped")
	}
}
