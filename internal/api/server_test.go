package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/schoolpulse/comms/internal/auth"
	"github.com/schoolpulse/comms/internal/handlers"
	"github.com/schoolpulse/comms/internal/hub"
	"github.com/schoolpulse/comms/internal/identity"
	"github.com/schoolpulse/comms/internal/models"
	"github.com/schoolpulse/comms/internal/repository"
	"github.com/schoolpulse/comms/internal/service"
	"github.com/schoolpulse/comms/internal/ws"
)

func newTestApp(t *testing.T) (*fiber.App, func(id string) string) {
	t.Helper()
	idents := []models.Identity{
		{ID: "x", Name: "Officer X", Role: models.RoleFieldOfficer.String(), Unit: "Nilore Sector"},
		{ID: "y", Name: "Officer Y", Role: models.RoleAreaOfficer.String(), Unit: "Nilore Sector"},
		{ID: "b", Name: "HQ Broadcast", Role: models.RoleBroadcaster.String(), Unit: "HQ"},
	}
	log := zap.NewNop().Sugar()
	repo := repository.NewMemoryRepository()
	dir := identity.NewMemoryDirectory(idents...)
	fanout := hub.New(log)
	svc := service.New(repo, dir, fanout, nil, log)
	verifier := auth.NewVerifier("test-secret")
	gateway := ws.NewGateway(fanout, svc, verifier, nil, ws.Config{
		PingInterval:  30 * time.Second,
		WriteDeadline: 10 * time.Second,
		ReadDeadline:  60 * time.Second,
		MaxMsgSize:    64 * 1024,
		SendBuffer:    8,
	}, log)
	rest := handlers.NewRestHandler(svc, nil, log)
	app := NewServer(rest, gateway, verifier)

	token := func(id string) string {
		for _, ident := range idents {
			if ident.ID == id {
				s, err := verifier.Sign(auth.Principal{
					UserID: ident.ID,
					Name:   ident.Name,
					Role:   models.ParseRole(ident.Role),
					Unit:   ident.Unit,
				})
				if err != nil {
					t.Fatalf("sign token: %v", err)
				}
				return s
			}
		}
		t.Fatalf("no seed identity %q", id)
		return ""
	}
	return app, token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp, out
}

func TestAPIRequiresAuth(t *testing.T) {
	app, _ := newTestApp(t)
	for _, path := range []string{"/api/conversations", "/api/unread-count", "/api/messages"} {
		resp, _ := doJSON(t, app, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s without token = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestSendAndReadFlow(t *testing.T) {
	app, token := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/messages", token("x"), map[string]string{
		"receiver_id":   "y",
		"context_label": "Nilore Sector",
		"text":          "Hello",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send = %d: %s", resp.StatusCode, body)
	}
	var msg models.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Text != "Hello" || msg.IsRead {
		t.Fatalf("unexpected message: %+v", msg)
	}

	resp, body = doJSON(t, app, http.MethodGet, "/api/conversations", token("y"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list conversations = %d", resp.StatusCode)
	}
	var summaries []models.ConversationSummary
	if err := json.Unmarshal(body, &summaries); err != nil {
		t.Fatalf("decode summaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	s := summaries[0]
	if s.ConversationID != msg.ConversationID || s.UnreadCount != 1 || s.OtherParticipant.ID != "x" || s.ContextLabel != "Nilore Sector" {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.LatestMessage == nil || s.LatestMessage.ID != msg.ID {
		t.Fatalf("latest message missing from summary")
	}

	resp, body = doJSON(t, app, http.MethodGet, "/api/unread-count", token("y"), nil)
	var unread struct {
		UnreadCount int64 `json:"unread_count"`
	}
	if err := json.Unmarshal(body, &unread); err != nil {
		t.Fatalf("decode unread: %v", err)
	}
	if unread.UnreadCount != 1 {
		t.Fatalf("unread = %d, want 1", unread.UnreadCount)
	}

	path := fmt.Sprintf("/api/conversations/%s/read", msg.ConversationID)
	resp, body = doJSON(t, app, http.MethodPost, path, token("y"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read = %d: %s", resp.StatusCode, body)
	}

	_, body = doJSON(t, app, http.MethodGet, "/api/unread-count", token("y"), nil)
	_ = json.Unmarshal(body, &unread)
	if unread.UnreadCount != 0 {
		t.Fatalf("unread after mark = %d, want 0", unread.UnreadCount)
	}

	resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/conversations/%s/messages", msg.ConversationID), token("y"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list messages = %d", resp.StatusCode)
	}
	var msgs []models.Message
	if err := json.Unmarshal(body, &msgs); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(msgs) != 1 || !msgs[0].IsRead {
		t.Fatalf("unexpected history: %+v", msgs)
	}
}

func TestSendValidationStatus(t *testing.T) {
	app, token := newTestApp(t)
	resp, _ := doJSON(t, app, http.MethodPost, "/api/messages", token("x"), map[string]string{
		"receiver_id": "y", "context_label": "Nilore Sector",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing text = %d, want 400", resp.StatusCode)
	}
	resp, _ = doJSON(t, app, http.MethodPost, "/api/messages", token("x"), map[string]string{
		"receiver_id": "nobody", "context_label": "Nilore Sector", "text": "hi",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown receiver = %d, want 404", resp.StatusCode)
	}
}

func TestBroadcastRestrictedToBroadcaster(t *testing.T) {
	app, token := newTestApp(t)
	resp, _ := doJSON(t, app, http.MethodPost, "/api/broadcasts", token("x"), map[string]string{
		"receiver_id": "y", "text": "hi",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("field officer broadcast = %d, want 403", resp.StatusCode)
	}

	resp, body := doJSON(t, app, http.MethodPost, "/api/broadcasts", token("b"), map[string]string{
		"receiver_id": "y", "text": "monthly reminder",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("broadcaster broadcast = %d: %s", resp.StatusCode, body)
	}
	var msg models.Message
	_ = json.Unmarshal(body, &msg)
	if msg.SenderID != "b" || msg.ReceiverID != "y" {
		t.Fatalf("unexpected broadcast message: %+v", msg)
	}
}

func TestListMessagesUnknownConversation(t *testing.T) {
	app, token := newTestApp(t)
	resp, _ := doJSON(t, app, http.MethodGet, "/api/conversations/missing/messages", token("x"), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown conversation = %d, want 404", resp.StatusCode)
	}
}

func TestWebsocketRouteRequiresUpgrade(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := doJSON(t, app, http.MethodGet, "/ws/chat/abc", "", nil)
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("plain GET on ws route = %d, want 426", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := doJSON(t, app, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d", resp.StatusCode)
	}
}
