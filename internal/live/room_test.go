package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/session"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/room"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func waitClients(t *testing.T, room *Room, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for room.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, room.Clients())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func startServer(t *testing.T) (*Room, *httptest.Server, *atomic.Int32) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	room := NewRoom(nil)
	go room.Run(ctx)

	saves := &atomic.Int32{}
	sess := session.New(session.DefaultOptions())
	srv := httptest.NewServer(NewServer(sess, room, func(*session.Session) error {
		saves.Add(1)
		return nil
	}))
	t.Cleanup(srv.Close)
	return room, srv, saves
}

func TestAcquireIsBroadcast(t *testing.T) {
	room, srv, saves := startServer(t)

	conn := dial(t, srv)
	defer conn.Close()
	waitClients(t, room, 1)

	resp, err := http.Post(srv.URL+"/api/acquire?regime=hover", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if !st.Acquired["HOVER"] || st.Acquired["GROUND"] || st.Run != 1 {
		t.Errorf("unexpected status %+v", st)
	}
	if saves.Load() != 1 {
		t.Errorf("expected one save, got %d", saves.Load())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if ev.Run != 1 || ev.Measurement.Regime != rotor.Hover {
		t.Errorf("unexpected event %+v", ev)
	}
}

func postStatus(t *testing.T, url string) (Status, int) {
	t.Helper()
	resp, err := http.Post(url, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var st Status
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			t.Fatal(err)
		}
	}
	return st, resp.StatusCode
}

func TestAcquireAllAndNextRun(t *testing.T) {
	_, srv, _ := startServer(t)

	st, _ := postStatus(t, srv.URL+"/api/acquire")
	for _, r := range rotor.Regimes {
		if !st.Acquired[r.String()] {
			t.Errorf("expected %s acquired", r)
		}
	}
	if len(st.Regimes) != len(rotor.Regimes) {
		t.Errorf("expected %d regime statuses, got %d", len(rotor.Regimes), len(st.Regimes))
	}

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusConflict} {
		if _, code := postStatus(t, srv.URL+"/api/next-run"); code != want {
			t.Errorf("call %d: expected %d, got %d", i, want, code)
		}
	}

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Run != 3 || st.MaxRuns != 3 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestBadRequests(t *testing.T) {
	_, srv, _ := startServer(t)

	resp, err := http.Post(srv.URL+"/api/acquire?regime=cruise", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/acquire")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStoppedRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	room := NewRoom(nil)
	stopped := make(chan struct{})
	go func() {
		room.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	room.OnAcquire(1, rotor.Measurement{Regime: rotor.Ground, Track: map[rotor.Blade]float64{}})
	if room.Clients() != 0 {
		t.Error("stopped room should report no clients")
	}
}
