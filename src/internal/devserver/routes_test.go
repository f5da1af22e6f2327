package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"buildhub-client/src/internal/config"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	srv := New(&config.Configuration{
		App: config.Application{Name: "buildhub-client", Version: "test"},
	}, "test-secret")
	srv.SetupRoutes(router)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestLoginIssuesToken(t *testing.T) {
	_, ts := testServer(t)

	resp, body := postJSON(t, ts.URL+"/api/v1/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "secret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("no token in login response")
	}
	if body["user"] == nil {
		t.Fatal("no user in login response")
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	_, ts := testServer(t)

	resp, _ := postJSON(t, ts.URL+"/api/v1/auth/login", map[string]string{"email": "ada@example.com"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestVerifyOTPDevCode(t *testing.T) {
	_, ts := testServer(t)

	resp, body := postJSON(t, ts.URL+"/api/v1/auth/verify-otp", map[string]string{
		"email": "ada@example.com",
		"code":  "000000",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if token, _ := body["token"].(string); token == "" {
		t.Fatal("no token in verification response")
	}

	resp, _ = postJSON(t, ts.URL+"/api/v1/auth/verify-otp", map[string]string{
		"email": "ada@example.com",
		"code":  "999999",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status for bad code = %d, want 401", resp.StatusCode)
	}
}

func TestRegisterPushToken(t *testing.T) {
	srv, ts := testServer(t)

	_, login := postJSON(t, ts.URL+"/api/v1/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "secret",
	})
	token, _ := login["token"].(string)

	resp, _ := postJSON(t, ts.URL+"/api/v1/notifications/register", map[string]string{
		"deviceToken":  "device-1",
		"sessionToken": token,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	tokens := srv.RegisteredTokens()
	if len(tokens) != 1 || tokens[0] != "device-1" {
		t.Fatalf("registered tokens = %v", tokens)
	}
}

func TestRegisterPushTokenRejectsBadSession(t *testing.T) {
	_, ts := testServer(t)

	resp, _ := postJSON(t, ts.URL+"/api/v1/notifications/register", map[string]string{
		"deviceToken":  "device-1",
		"sessionToken": "forged",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestWSRequiresAuthToken(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/ws")
	if err != nil {
		t.Fatalf("GET /ws: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestWSEchoWithValidToken(t *testing.T) {
	_, ts := testServer(t)

	_, login := postJSON(t, ts.URL+"/api/v1/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "secret",
	})
	token, _ := login["token"].(string)

	wsURL := "ws://" + strings.TrimPrefix(ts.URL, "http://") + "/ws"
	h := http.Header{}
	h.Set("authtoken", token)

	ctx := context.Background()
	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: h})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if err := conn.Write(ctx, websocket.MessageText, []byte("ping")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "ping" {
		t.Fatalf("echo = %q", data)
	}
}
