// Package webhook exposes the Messenger webhook over HTTP.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/oggyb/chatible/internal/config"
	"github.com/oggyb/chatible/internal/messenger"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	maxBodyBytes    = 1 << 20
)

// Submitter accepts events for asynchronous handling. chatible.Loop implements it.
type Submitter interface {
	Submit(ev messenger.Event) error
}

// Handler serves the verification handshake and event callbacks.
type Handler struct {
	verifyToken string
	appSecret   []byte
	sink        Submitter
	log         *slog.Logger
}

func NewHandler(cfg *config.Config, sink Submitter, log *slog.Logger) *Handler {
	h := &Handler{
		verifyToken: cfg.Messenger.VerifyToken,
		sink:        sink,
		log:         log.With("component", "webhook"),
	}
	if cfg.Messenger.AppSecret != "" {
		h.appSecret = []byte(cfg.Messenger.AppSecret)
	}
	return h
}

// Router registers every route on a new mux.Router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/webhook", h.Verify).Methods(http.MethodGet)
	r.HandleFunc("/webhook", h.Receive).Methods(http.MethodPost)
	return r
}

// Verify answers the subscription handshake by echoing hub.challenge.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || h.verifyToken == "" || q.Get("hub.verify_token") != h.verifyToken {
		h.log.Warn("webhook verification rejected", "mode", q.Get("hub.mode"))
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

// Receive checks the payload signature, then queues every messaging event.
// Callbacks are acknowledged as soon as they are queued.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if h.appSecret != nil && !h.validSignature(r.Header.Get(signatureHeader), body) {
		h.log.Warn("webhook signature mismatch")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var cb messenger.Callback
	if err := json.Unmarshal(body, &cb); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if cb.Object != "page" {
		http.NotFound(w, r)
		return
	}

	queued := 0
	for _, entry := range cb.Entry {
		for _, ev := range entry.Messaging {
			if err := h.sink.Submit(ev); err != nil {
				h.log.Error("event not queued", "sender", ev.Sender.ID, "err", err)
				continue
			}
			queued++
		}
	}
	h.log.Debug("webhook callback", "entries", len(cb.Entry), "queued", queued)

	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "EVENT_RECEIVED")
}

func (h *Handler) validSignature(header string, body []byte) bool {
	got, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	sig, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.appSecret)
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}

// NewServer builds the HTTP server for the webhook listener.
func NewServer(cfg *config.Config, h *Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
