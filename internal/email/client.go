// Package email はトランザクションメールAPIへの送信クライアントを提供します。
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client はメール送信APIのHTTPクライアントです。
type Client struct {
	baseURL    string
	sender     string
	authToken  string
	httpClient *http.Client
}

// NewClient は Client を作成します。timeout はAPI呼び出し全体に適用されます。
func NewClient(baseURL, sender, authToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		sender:    sender,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Send はメールを1通送信します。2xx以外の応答はエラーとして扱います。
func (c *Client) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	payload, err := json.Marshal(sendEmailRequest{
		From:     c.sender,
		To:       recipient,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}
	return nil
}
