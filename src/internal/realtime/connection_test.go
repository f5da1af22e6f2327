package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"buildhub-client/src/internal/config"
	"buildhub-client/src/internal/models"

	"github.com/coder/websocket"
)

// handshakeRecorder accepts websocket connections and records the authtoken
// header of every handshake in order.
type handshakeRecorder struct {
	mu     sync.Mutex
	tokens []string
}

func (h *handshakeRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.tokens = append(h.tokens, r.Header.Get("authtoken"))
	h.mu.Unlock()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	// Hold the connection open until the client closes it.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

func (h *handshakeRecorder) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.tokens))
	copy(out, h.tokens)
	return out
}

func testConnection(t *testing.T) (*Connection, *handshakeRecorder) {
	t.Helper()
	recorder := &handshakeRecorder{}
	srv := httptest.NewServer(recorder)
	t.Cleanup(srv.Close)

	wsURL := "ws://" + strings.TrimPrefix(srv.URL, "http://")
	conn := NewConnection(&config.Configuration{
		Realtime: config.RealtimeConfig{URL: wsURL, Timeout: 5},
	})
	t.Cleanup(conn.Disconnect)
	return conn, recorder
}

func TestConnectAttachesTokenBeforeDial(t *testing.T) {
	conn, recorder := testConnection(t)

	if err := conn.ConnectWithToken(context.Background(), "tokenA"); err != nil {
		t.Fatalf("ConnectWithToken: %v", err)
	}
	if !conn.Connected() {
		t.Fatal("Connected = false after successful dial")
	}

	seen := recorder.seen()
	if len(seen) != 1 || seen[0] != "tokenA" {
		t.Fatalf("handshake tokens = %v, want [tokenA]", seen)
	}
}

func TestReconnectWithNewTokenReauthenticates(t *testing.T) {
	conn, recorder := testConnection(t)

	if err := conn.ConnectWithToken(context.Background(), "tokenA"); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if err := conn.ConnectWithToken(context.Background(), "tokenB"); err != nil {
		t.Fatalf("second connect: %v", err)
	}

	// The stale connection is closed before the new dial, so the transport
	// is authenticated as tokenB only.
	seen := recorder.seen()
	if len(seen) != 2 || seen[0] != "tokenA" || seen[1] != "tokenB" {
		t.Fatalf("handshake tokens = %v, want [tokenA tokenB]", seen)
	}
	if !conn.Connected() {
		t.Fatal("Connected = false after re-authentication")
	}
}

func TestConnectWithSameTokenIsIdempotent(t *testing.T) {
	conn, recorder := testConnection(t)

	if err := conn.ConnectWithToken(context.Background(), "tokenA"); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if err := conn.ConnectWithToken(context.Background(), "tokenA"); err != nil {
		t.Fatalf("repeat connect: %v", err)
	}

	if seen := recorder.seen(); len(seen) != 1 {
		t.Fatalf("handshakes = %d, want 1 (no redial for the same token)", len(seen))
	}
}

func TestConnectWithoutTokenRejected(t *testing.T) {
	conn, recorder := testConnection(t)

	err := conn.ConnectWithToken(context.Background(), "")
	if !errors.Is(err, models.ErrMissingToken) {
		t.Fatalf("error = %v, want ErrMissingToken", err)
	}
	if len(recorder.seen()) != 0 {
		t.Fatal("dial attempted without a token")
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	conn, _ := testConnection(t)

	if err := conn.ConnectWithToken(context.Background(), "tokenA"); err != nil {
		t.Fatalf("ConnectWithToken: %v", err)
	}

	conn.Disconnect()
	if conn.Connected() {
		t.Fatal("Connected = true after Disconnect")
	}
	conn.Disconnect()
}

func TestWriteRequiresConnection(t *testing.T) {
	conn, _ := testConnection(t)

	err := conn.Write(context.Background(), []byte("hello"))
	if !errors.Is(err, models.ErrNotConnected) {
		t.Fatalf("error = %v, want ErrNotConnected", err)
	}

	if err := conn.ConnectWithToken(context.Background(), "tokenA"); err != nil {
		t.Fatalf("ConnectWithToken: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Write(ctx, []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
}
