package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-agent-go/internal/config"
)

func newTestServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	tokenCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-123",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/users/jobs@example.com/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "isRead eq false", r.URL.Query().Get("$filter"))
		_, _ = w.Write([]byte(`{"value": [{
			"id": "msg-1",
			"subject": "ReactJS-JD",
			"bodyPreview": "vista previa",
			"body": {"contentType": "Text", "content": "Cliente: Acme -"},
			"from": {"emailAddress": {"address": "jobs@acme.com", "name": "Reclutador"}},
			"receivedDateTime": "2026-08-30T10:00:00Z"
		}]}`))
	})
	mux.HandleFunc("/users/jobs@example.com/sendMail", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		message := payload["message"].(map[string]interface{})
		assert.Equal(t, "Asunto", message["subject"])
		w.WriteHeader(http.StatusAccepted)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &tokenCalls
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient(config.MailConfig{
		BaseURL:  server.URL,
		TokenURL: server.URL + "/token",
		ClientID: "cid",
		Mailbox:  "jobs@example.com",
	})
}

func TestFetchUnread(t *testing.T) {
	server, _ := newTestServer(t)
	c := newTestClient(server)

	messages, err := c.FetchUnread(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)

	msg := messages[0]
	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, "ReactJS-JD", msg.Subject)
	assert.Equal(t, "Cliente: Acme -", msg.Body)
	assert.Equal(t, "jobs@acme.com", msg.SenderEmail)
	assert.Equal(t, "Reclutador", msg.SenderName)
	assert.Equal(t, 2026, msg.ReceivedAt.Year())
}

func TestTokenCachedAcrossCalls(t *testing.T) {
	server, tokenCalls := newTestServer(t)
	c := newTestClient(server)

	_, err := c.FetchUnread(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Send(context.Background(), "a@b.com", "Asunto", "cuerpo"))

	assert.Equal(t, 1, *tokenCalls)
}

func TestSendTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			_, _ = w.Write([]byte(`{"access_token": "tok", "expires_in": 3600}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(config.MailConfig{BaseURL: server.URL, TokenURL: server.URL + "/token", Mailbox: "m@x.com"})
	err := c.Send(context.Background(), "a@b.com", "s", "b")
	require.Error(t, err)
}
