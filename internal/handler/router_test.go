package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	gojwt "github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"

	"callrelay/internal/app/credential"
	"callrelay/internal/app/history"
	"callrelay/internal/app/signaling"
	"callrelay/internal/configs"
	"callrelay/internal/pkg/auth/jwt"
	"callrelay/internal/pkg/errs"
	"callrelay/internal/pkg/resp"
)

const testSecret = "test-secret"

type testServer struct {
	*httptest.Server
	deps  *AppDeps
	clock *clock.Mock
	hist  *history.MemoryStore
}

func newTestServer(t *testing.T, mutate ...func(*AppDeps)) *testServer {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Now())

	cfg := &configs.AppConfig{
		Environment:          "development",
		TokenSecret:          testSecret,
		TokenIssuer:          "callrelay-test",
		TokenDefaultTTL:      time.Hour,
		TokenMaxTTL:          2 * time.Hour,
		CallDefaultDuration:  time.Minute,
		CallMaxDuration:      time.Hour,
		EndCallsOnDisconnect: true,
	}

	hist := history.NewMemoryStore()
	issuer := credential.NewJWTIssuer(cfg.TokenSecret, cfg.TokenIssuer, mock)

	deps := &AppDeps{
		Config:  cfg,
		Issuer:  issuer,
		History: hist,
		Clock:   mock,
	}
	for _, fn := range mutate {
		fn(deps)
	}

	deps.Manager = signaling.NewManager(signaling.Options{
		Clock:                mock,
		Issuer:               deps.Issuer,
		History:              hist,
		DefaultCallDuration:  cfg.CallDefaultDuration,
		MaxCallDuration:      cfg.CallMaxDuration,
		EndCallsOnDisconnect: cfg.EndCallsOnDisconnect,
	})
	t.Cleanup(deps.Manager.Shutdown)

	srv := httptest.NewServer(Router(deps))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, deps: deps, clock: mock, hist: hist}
}

func (s *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	res, err := http.Get(s.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func (s *testServer) post(t *testing.T, path, contentType, body string) *http.Response {
	t.Helper()
	res, err := http.Post(s.URL+path, contentType, strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decodeBody(t *testing.T, res *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func tokenClaims(t *testing.T, res *http.Response) *jwt.Payload {
	t.Helper()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", res.StatusCode)
	}

	var body TokenResponse
	decodeBody(t, res, &body)

	return verifyToken(t, body.Token, testSecret)
}

// verifyToken checks an HS256 token and returns its claims.
func verifyToken(t *testing.T, tokenString, secret string) *jwt.Payload {
	t.Helper()

	claims := &jwt.Payload{}
	token, err := gojwt.ParseWithClaims(tokenString, claims, func(*gojwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("verify token: %v", err)
	}
	if token.Method != gojwt.SigningMethodHS256 {
		t.Fatalf("signing method: got %v, want HS256", token.Method.Alg())
	}
	return claims
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	res := srv.get(t, "/health")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", res.StatusCode)
	}

	var body resp.JSONResponse
	decodeBody(t, res, &body)
	if body.Code != 0 || body.Message != "success" {
		t.Fatalf("body: got %+v", body)
	}
}

func TestToken_IssuesRequestedCredential(t *testing.T) {
	srv := newTestServer(t)

	res := srv.get(t, "/token?channel=r1&uid=42&role=subscriber&ttl=600")

	if cc := res.Header.Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("Cache-Control: got %q, want no-store", cc)
	}

	claims := tokenClaims(t, res)
	if claims.Channel != "r1" || claims.UID != 42 || claims.Role != "subscriber" {
		t.Fatalf("claims: got %+v", claims)
	}
	if got := claims.ExpiresAt - claims.IssuedAt; got != 600 {
		t.Fatalf("ttl: got %ds, want 600s", got)
	}
}

func TestToken_Defaults(t *testing.T) {
	srv := newTestServer(t)

	claims := tokenClaims(t, srv.get(t, "/token?channel=r1"))

	if claims.UID != 0 || claims.Role != string(credential.RolePublisher) {
		t.Fatalf("claims: got %+v", claims)
	}
	if got := claims.ExpiresAt - claims.IssuedAt; got != int64(time.Hour/time.Second) {
		t.Fatalf("ttl: got %ds, want default 3600s", got)
	}
}

func TestToken_CapsTTL(t *testing.T) {
	srv := newTestServer(t)

	claims := tokenClaims(t, srv.get(t, "/token?channel=r1&ttl=999999"))

	if got := claims.ExpiresAt - claims.IssuedAt; got != int64(2*time.Hour/time.Second) {
		t.Fatalf("ttl: got %ds, want capped 7200s", got)
	}
}

func TestToken_RejectsInvalidQuery(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name  string
		query url.Values
		code  int
	}{
		{name: "missing channel", query: url.Values{}, code: errs.ErrChannelRequired},
		{name: "bad channel", query: url.Values{"channel": {"a/b"}}, code: errs.ErrChannelInvalid},
		{name: "bad role", query: url.Values{"channel": {"r1"}, "role": {"admin"}}, code: errs.ErrRoleInvalid},
		{name: "negative ttl", query: url.Values{"channel": {"r1"}, "ttl": {"-1"}}, code: errs.ErrTTLInvalid},
		{name: "text ttl", query: url.Values{"channel": {"r1"}, "ttl": {"soon"}}, code: errs.ErrTTLInvalid},
		{name: "bad uid", query: url.Values{"channel": {"r1"}, "uid": {"-3"}}, code: errs.ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := srv.get(t, "/token?"+tt.query.Encode())
			if res.StatusCode != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", res.StatusCode)
			}

			var body resp.ErrorBody
			decodeBody(t, res, &body)
			if body.Code != tt.code || body.Error == "" {
				t.Fatalf("body: got %+v, want code %d", body, tt.code)
			}
		})
	}
}

func TestToken_IssuerFailure(t *testing.T) {
	srv := newTestServer(t, func(d *AppDeps) {
		d.Issuer = credential.IssuerFunc(func(string, uint32, credential.Role, time.Duration) (string, error) {
			return "", errors.New("signer offline")
		})
	})

	res := srv.get(t, "/token?channel=r1")
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", res.StatusCode)
	}

	var body resp.ErrorBody
	decodeBody(t, res, &body)
	if body.Code != errs.ErrCredentialIssue {
		t.Fatalf("code: got %d, want %d", body.Code, errs.ErrCredentialIssue)
	}
}

func TestCallDuration_Lifecycle(t *testing.T) {
	srv := newTestServer(t)
	const body = `{"channel":"r1"}`

	res := srv.post(t, "/call-duration", "application/json", body)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status before begin: got %d, want 404", res.StatusCode)
	}

	if err := srv.hist.Begin(context.Background(), "r1", srv.clock.Now().Add(-30*time.Second)); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	res = srv.post(t, "/call-duration", "application/json", body)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", res.StatusCode)
	}
	var rec history.Record
	decodeBody(t, res, &rec)
	if rec.Channel != "r1" || rec.EndedAt != nil || rec.Duration != 30 {
		t.Fatalf("record: got %+v, want running 30s", rec)
	}

	res = srv.post(t, "/reset-call-duration", "application/json", body)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reset status: got %d, want 200", res.StatusCode)
	}
	var msg MessageResponse
	decodeBody(t, res, &msg)
	if msg.Message == "" {
		t.Fatalf("reset message is empty")
	}

	res = srv.post(t, "/call-duration", "application/json", body)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status after reset: got %d, want 404", res.StatusCode)
	}
}

func TestCallDuration_RejectsBadBody(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		code        int
	}{
		{name: "form body", contentType: "text/plain", body: "channel=r1", status: http.StatusUnsupportedMediaType, code: errs.ErrUnsupportedMediaType},
		{name: "unknown field", contentType: "application/json", body: `{"room":"r1"}`, status: http.StatusBadRequest, code: errs.ErrInvalidJSONFormat},
		{name: "empty channel", contentType: "application/json", body: `{"channel":""}`, status: http.StatusBadRequest, code: errs.ErrChannelRequired},
		{name: "trailing data", contentType: "application/json", body: `{"channel":"r1"} {}`, status: http.StatusBadRequest, code: errs.ErrExtraContentInBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := srv.post(t, "/call-duration", tt.contentType, tt.body)
			if res.StatusCode != tt.status {
				t.Fatalf("status: got %d, want %d", res.StatusCode, tt.status)
			}

			var body resp.ErrorBody
			decodeBody(t, res, &body)
			if body.Code != tt.code {
				t.Fatalf("code: got %d, want %d", body.Code, tt.code)
			}
		})
	}
}

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, srv *testServer) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"event": event, "data": data}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// readUntil skips frames until event arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(3 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		if frame.Event == event {
			return frame.Data
		}
	}
}

func TestWebSocket_CallFlow(t *testing.T) {
	srv := newTestServer(t)

	alice := dialWS(t, srv)
	bob := dialWS(t, srv)

	sendWS(t, alice, signaling.EventJoin, map[string]any{"userId": 7, "displayName": "alice"})
	sendWS(t, bob, signaling.EventJoin, map[string]any{"userId": "8", "displayName": "bob"})

	// bob's own join is the last presence change; once he sees himself, both are registered.
	for {
		var online map[string]any
		if err := json.Unmarshal(readUntil(t, bob, signaling.EventUpdateOnlineUsers), &online); err != nil {
			t.Fatalf("decode online users: %v", err)
		}
		if _, ok := online["8"]; ok && len(online) == 2 {
			break
		}
	}

	sendWS(t, alice, signaling.EventStartCall, map[string]any{
		"room": "r1", "callerId": 7, "callerName": "alice",
		"receiverId": 8, "receiverName": "bob", "duration": 90,
	})

	var note signaling.CallNotification
	if err := json.Unmarshal(readUntil(t, bob, signaling.EventCallNotification), &note); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if note.Room != "r1" || note.CallerID != "7" || note.Duration != 90 {
		t.Fatalf("notification: got %+v", note)
	}

	sendWS(t, bob, signaling.EventAcceptCall, map[string]any{"room": "r1", "callerId": 7, "receiverId": 8})

	var accepted signaling.CallAccepted
	if err := json.Unmarshal(readUntil(t, alice, signaling.EventCallAccepted), &accepted); err != nil {
		t.Fatalf("decode call-accepted: %v", err)
	}
	claims := verifyToken(t, accepted.Token, testSecret)
	if claims.Channel != "r1" || claims.UID != 7 || claims.Role != "publisher" {
		t.Fatalf("claims: got %+v", claims)
	}

	sendWS(t, bob, signaling.EventEndCall, map[string]any{"room": "r1", "callerId": 7, "receiverId": 8})

	readUntil(t, alice, signaling.EventCallEnded)
	readUntil(t, bob, signaling.EventCallEnded)
}

func TestWebSocket_ErrorEvent(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWS(t, srv)

	sendWS(t, conn, signaling.EventAcceptCall, map[string]any{"room": "nowhere"})

	var payload signaling.ErrorPayload
	if err := json.Unmarshal(readUntil(t, conn, signaling.EventError), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Code != errs.ErrNoSuchSession || payload.Event != signaling.EventAcceptCall {
		t.Fatalf("error payload: got %+v", payload)
	}
}
