package messenger_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/chatible/internal/config"
	"github.com/oggyb/chatible/internal/messenger"
)

type graphStub struct {
	mu     sync.Mutex
	bodies []map[string]any
	status int
}

func (g *graphStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "page-token", r.URL.Query().Get("access_token"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		g.mu.Lock()
		g.bodies = append(g.bodies, body)
		g.mu.Unlock()

		if g.status != 0 {
			w.WriteHeader(g.status)
			_, _ = w.Write([]byte(`{"error":{"message":"bad recipient","type":"OAuthException","code":100}}`))
			return
		}
		_, _ = w.Write([]byte(`{"recipient_id":"1","message_id":"m"}`))
	})
	mux.HandleFunc("/u-male", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gender", r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{"gender":"male","id":"u-male"}`))
	})
	mux.HandleFunc("/u-private", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"u-private"}`))
	})
	return mux
}

func setupClient(t *testing.T, stub *graphStub) *messenger.Client {
	t.Helper()
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	cfg := config.New()
	cfg.Messenger.GraphURL = srv.URL
	cfg.Messenger.PageToken = "page-token"
	return messenger.NewClient(cfg, "[BOT] ")
}

func TestSendTextPrefixesBotMessages(t *testing.T) {
	ctx := context.Background()
	stub := &graphStub{}
	c := setupClient(t, stub)

	require.NoError(t, c.SendText(ctx, "42", "hello", false))
	require.NoError(t, c.SendText(ctx, "42", "from partner", true))

	require.Len(t, stub.bodies, 2)
	msg0 := stub.bodies[0]["message"].(map[string]any)
	msg1 := stub.bodies[1]["message"].(map[string]any)
	assert.Equal(t, "[BOT] hello", msg0["text"])
	assert.Equal(t, "from partner", msg1["text"])
	assert.Equal(t, "42", stub.bodies[0]["recipient"].(map[string]any)["id"])
}

func TestSendAttachmentQuickRepliesAndSeen(t *testing.T) {
	ctx := context.Background()
	stub := &graphStub{}
	c := setupClient(t, stub)

	require.NoError(t, c.SendAttachment(ctx, "7", messenger.AttachmentImage, "https://img/1.png"))
	require.NoError(t, c.SendQuickReplies(ctx, "7", "pick", []messenger.QuickReply{{Title: "Start", Payload: "start"}}))
	require.NoError(t, c.SendSeen(ctx, "7"))

	require.Len(t, stub.bodies, 3)

	att := stub.bodies[0]["message"].(map[string]any)["attachment"].(map[string]any)
	assert.Equal(t, "image", att["type"])
	assert.Equal(t, "https://img/1.png", att["payload"].(map[string]any)["url"])

	qr := stub.bodies[1]["message"].(map[string]any)["quick_replies"].([]any)
	require.Len(t, qr, 1)
	assert.Equal(t, "start", qr[0].(map[string]any)["payload"])
	assert.Equal(t, "[BOT] pick", stub.bodies[1]["message"].(map[string]any)["text"])

	assert.Equal(t, "mark_seen", stub.bodies[2]["sender_action"])
	assert.Nil(t, stub.bodies[2]["message"])
}

func TestSendSurfacesGraphError(t *testing.T) {
	stub := &graphStub{status: http.StatusBadRequest}
	c := setupClient(t, stub)

	err := c.SendText(context.Background(), "x", "hi", false)
	var gerr *messenger.GraphError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 100, gerr.Code)
	assert.Equal(t, http.StatusBadRequest, gerr.Status)
	assert.Equal(t, "bad recipient", gerr.Message)
}

func TestUserGender(t *testing.T) {
	ctx := context.Background()
	c := setupClient(t, &graphStub{})

	g, err := c.UserGender(ctx, "u-male")
	require.NoError(t, err)
	assert.Equal(t, "male", g)

	g, err = c.UserGender(ctx, "u-private")
	require.NoError(t, err)
	assert.Empty(t, g)

	_, err = c.UserGender(ctx, "u-missing")
	assert.Error(t, err)
}

func TestAttachmentTypeRelayable(t *testing.T) {
	for _, kind := range []messenger.AttachmentType{"image", "video", "audio", "file"} {
		assert.True(t, kind.Relayable(), kind)
	}
	assert.False(t, messenger.AttachmentFallback.Relayable())
	assert.False(t, messenger.AttachmentType("location").Relayable())
}
