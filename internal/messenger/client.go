package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oggyb/chatible/internal/config"
)

// GraphError is the error object returned by the Graph API.
type GraphError struct {
	Status  int
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph api: status %d code %d: %s", e.Status, e.Code, e.Message)
}

// Client talks to the Messenger Send API and the user profile endpoint.
type Client struct {
	http      *http.Client
	graphURL  string
	token     string
	botPrefix string
}

// NewClient builds a client from config. botPrefix is prepended to every
// non-relayed text so users can tell bot messages from their partner's.
func NewClient(cfg *config.Config, botPrefix string) *Client {
	timeout := cfg.Messenger.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		graphURL:  strings.TrimRight(cfg.Messenger.GraphURL, "/"),
		token:     cfg.Messenger.PageToken,
		botPrefix: botPrefix,
	}
}

type recipient struct {
	ID string `json:"id"`
}

type sendRequest struct {
	Recipient     recipient    `json:"recipient"`
	MessagingType string       `json:"messaging_type,omitempty"`
	Message       *sendMessage `json:"message,omitempty"`
	SenderAction  string       `json:"sender_action,omitempty"`
}

type sendMessage struct {
	Text         string          `json:"text,omitempty"`
	Attachment   *sendAttachment `json:"attachment,omitempty"`
	QuickReplies []quickReply    `json:"quick_replies,omitempty"`
}

type sendAttachment struct {
	Type    AttachmentType `json:"type"`
	Payload struct {
		URL        string `json:"url"`
		IsReusable bool   `json:"is_reusable"`
	} `json:"payload"`
}

type quickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

// SendText sends text to a user. Relayed texts come from the user's partner
// and are sent verbatim; everything else carries the bot prefix.
func (c *Client) SendText(ctx context.Context, to, text string, relayed bool) error {
	if !relayed {
		text = c.botPrefix + text
	}
	return c.send(ctx, sendRequest{
		Recipient:     recipient{ID: to},
		MessagingType: "RESPONSE",
		Message:       &sendMessage{Text: text},
	})
}

// SendAttachment sends a typed attachment by URL.
func (c *Client) SendAttachment(ctx context.Context, to string, kind AttachmentType, attachmentURL string) error {
	att := &sendAttachment{Type: kind}
	att.Payload.URL = attachmentURL
	return c.send(ctx, sendRequest{
		Recipient:     recipient{ID: to},
		MessagingType: "RESPONSE",
		Message:       &sendMessage{Attachment: att},
	})
}

// SendQuickReplies sends a bot text with buttons underneath.
func (c *Client) SendQuickReplies(ctx context.Context, to, text string, replies []QuickReply) error {
	msg := &sendMessage{Text: c.botPrefix + text}
	for _, r := range replies {
		msg.QuickReplies = append(msg.QuickReplies, quickReply{
			ContentType: "text",
			Title:       r.Title,
			Payload:     r.Payload,
		})
	}
	return c.send(ctx, sendRequest{
		Recipient:     recipient{ID: to},
		MessagingType: "RESPONSE",
		Message:       msg,
	})
}

// SendSeen shows the "seen" indicator to the user.
func (c *Client) SendSeen(ctx context.Context, to string) error {
	return c.send(ctx, sendRequest{
		Recipient:    recipient{ID: to},
		SenderAction: "mark_seen",
	})
}

// UserGender fetches the gender field of a user's public profile.
// The raw value is returned; mapping is left to the caller.
func (c *Client) UserGender(ctx context.Context, id string) (string, error) {
	q := url.Values{}
	q.Set("fields", "gender")
	q.Set("access_token", c.token)
	endpoint := fmt.Sprintf("%s/%s?%s", c.graphURL, url.PathEscape(id), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Gender string `json:"gender"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Gender, nil
}

func (c *Client) send(ctx context.Context, body sendRequest) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", c.graphURL, url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph api request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("graph api read: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var wrapped struct {
			Error GraphError `json:"error"`
		}
		_ = json.Unmarshal(body, &wrapped)
		wrapped.Error.Status = resp.StatusCode
		if wrapped.Error.Message == "" {
			wrapped.Error.Message = http.StatusText(resp.StatusCode)
		}
		return &wrapped.Error
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("graph api decode: %w", err)
	}
	return nil
}
