package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MailService sends transactional email through the Resend HTTP API.
type MailService struct {
	apiKey      string
	senderEmail string
	senderName  string
	endpoint    string
	client      *http.Client
}

func NewMailService(apiKey, senderEmail, senderName string) *MailService {
	if senderName == "" {
		senderName = "New Zealection"
	}
	return &MailService{
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  senderName,
		endpoint:    "https://api.resend.com/emails",
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether outbound mail is configured. Deployments without an
// API key simply skip welcome mail.
func (s *MailService) Enabled() bool {
	return s.apiKey != ""
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendWelcomeEmail greets a newly registered collector.
func (s *MailService) SendWelcomeEmail(ctx context.Context, toEmail string) error {
	html := `
		<h2>Welcome to New Zealection!</h2>
		<p>Your account is ready. Roll your first card and start building your collection of Aotearoa's finest.</p>
		<p>If you didn't create this account, you can safely ignore this email.</p>`

	return s.send(ctx, toEmail, "Welcome to New Zealection", html)
}

func (s *MailService) send(ctx context.Context, toEmail, subject, html string) error {
	payload := resendRequest{
		From:    fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail),
		To:      []string{toEmail},
		Subject: subject,
		HTML:    html,
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail API error: status=%d body=%s", resp.StatusCode, body)
	}
	return nil
}
