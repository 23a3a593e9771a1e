package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrRelayRejected is returned when the mail relay answers with a non-2xx
// status.
var ErrRelayRejected = errors.New("mail relay rejected message")

// Client posts bill emails to an smtp2go-compatible HTTP relay.
type Client struct {
	endpoint   string
	sender     string
	apiKey     string
	httpClient *http.Client
}

func NewClient(endpoint, sender, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		sender:     sender,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type relayPayload struct {
	APIKey   string   `json:"api_key"`
	To       []string `json:"to"`
	Sender   string   `json:"sender"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"text_body"`
}

// Send delivers req through the relay.
func (c *Client) Send(ctx context.Context, req Request) error {
	body, err := json.Marshal(relayPayload{
		APIKey:   c.apiKey,
		To:       []string{req.To},
		Sender:   c.sender,
		Subject:  req.Subject(),
		TextBody: req.Body(),
	})
	if err != nil {
		return fmt.Errorf("encode relay payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post to mail relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRelayRejected, resp.StatusCode, bytes.TrimSpace(detail))
	}

	slog.InfoContext(ctx, "Bill email sent", "member", req.MemberName, "recipient", req.To, "month", req.Month)
	return nil
}
