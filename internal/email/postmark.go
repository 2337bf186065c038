package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dukerupert/bywater/internal/model"
)

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendMagicLink emails a single-use sign-in or invitation link. The wording
// tracks the token policy: login links die after an hour, invitations after
// a day.
func (c *Client) SendMagicLink(toEmail, token, purpose, familyName string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	var subject, action, expiry string
	switch purpose {
	case model.TokenPurposeInvite:
		subject = fmt.Sprintf("You've been invited to %s on Bywater", familyName)
		action = "accept your invitation"
		expiry = "24 hours"
	default:
		subject = "Sign in to Bywater"
		action = "sign in"
		expiry = "1 hour"
	}

	link := fmt.Sprintf("%s/verify?token=%s", c.baseURL, token)
	textBody := fmt.Sprintf("Click the link below to %s:\n\n%s\n\nThis link expires in %s and can only be used once.", action, link, expiry)
	htmlBody := fmt.Sprintf(
		`<p>Click the link below to %s:</p><p><a href="%s">%s</a></p><p>This link expires in %s and can only be used once.</p>`,
		action, link, action, expiry,
	)

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.postmarkapp.com/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
