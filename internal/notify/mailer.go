package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer is any provider that can deliver one message. The dispatcher does
// not care which transport sits behind it.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// MailgunClient delivers messages through the Mailgun HTTP API.
type MailgunClient struct {
	Client     *http.Client
	APIAddress string
	Domain     string
	APIKey     string
}

func (c *MailgunClient) Send(ctx context.Context, msg *Message) error {
	form := url.Values{}
	form.Set("from", msg.From)
	form.Set("to", msg.To)
	form.Set("subject", msg.Subject)
	form.Set("html", msg.HTML)

	endpoint := fmt.Sprintf("%s/v3/%s/messages", strings.TrimRight(c.APIAddress, "/"), c.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth("api", c.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mailgun status %d", resp.StatusCode)
	}
	return nil
}
