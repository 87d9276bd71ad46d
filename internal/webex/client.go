package webex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	logx "revbot/pkg/logx"
)

// DefaultAPIURL is the fixed Webex messages endpoint.
const DefaultAPIURL = "https://api.ciscospark.com/v1/messages"

type Config struct {
	AccessToken string

	// WhoamiLink, when set, is appended to every message body so recipients
	// can tell which bot contacted them.
	WhoamiLink string

	// SendTimeout bounds each delivery call.
	SendTimeout time.Duration

	// APIURL overrides the messages endpoint; tests point it at a fake server.
	APIURL string
}

// Client posts direct messages to Webex. It is read-only after construction
// and safe for concurrent use.
type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
	whoami     string
	log        logx.Logger
}

// message is the wire shape Webex expects.
type message struct {
	ToPersonEmail string `json:"toPersonEmail"`
	Markdown      string `json:"markdown"`
}

func New(cfg Config, log logx.Logger) *Client {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	apiURL := strings.TrimSpace(cfg.APIURL)
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     apiURL,
		token:      cfg.AccessToken,
		whoami:     strings.TrimSpace(cfg.WhoamiLink),
		log:        log,
	}
}

// SendMessage delivers one markdown message to the given email. A non-2xx
// response is a delivery failure; the caller decides what to do with it.
func (c *Client) SendMessage(ctx context.Context, recipientEmail, markdown string) error {
	if c.whoami != "" {
		markdown = markdown + "\n\n" + c.whoami
	}

	body, err := json.Marshal(message{ToPersonEmail: recipientEmail, Markdown: markdown})
	if err != nil {
		return fmt.Errorf("webex: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webex: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webex: send message: %w", err)
	}
	defer resp.Body.Close()

	// Webex answers with the created message resource; keep it for debugging
	// but never fail delivery over an unreadable body alone.
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if readErr == nil && c.log.Enabled(logx.LevelDebug) {
		c.log.Debug("webex response",
			logx.Int("status", resp.StatusCode),
			logx.String("body", string(respBody)),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webex: unexpected status %s", resp.Status)
	}
	return nil
}
