package mailer

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

//go:embed "templates"
var templateFS embed.FS

// DefaultAPIURL is the SMTP2GO send endpoint
const DefaultAPIURL = "https://api.smtp2go.com/v3/email/send"

const maxAttempts = 3

type Mailer struct {
	apiKey     string
	sender     string
	apiURL     string
	retryDelay time.Duration
	client     *http.Client
	logger     *slog.Logger
}

// SMTP2GO API request structure
type SMTP2GORequest struct {
	APIKey   string   `json:"api_key"`
	To       []string `json:"to"`
	Sender   string   `json:"sender"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"text_body"`
	HtmlBody string   `json:"html_body"`
}

// SMTP2GO API response structure
type SMTP2GOResponse struct {
	RequestID string `json:"request_id"`
	Data      struct {
		EmailID string `json:"email_id"`
	} `json:"data"`
}

func New(apiKey, sender string, logger *slog.Logger) Mailer {
	return Mailer{
		apiKey:     apiKey,
		sender:     sender,
		apiURL:     DefaultAPIURL,
		retryDelay: 500 * time.Millisecond,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithAPIURL returns a copy of the mailer posting to url
func (m Mailer) WithAPIURL(url string, retryDelay time.Duration) Mailer {
	m.apiURL = url
	m.retryDelay = retryDelay
	return m
}

// Send renders templateFile's subject, plainBody and htmlBody blocks with
// data and delivers the message, retrying transient failures
func (m Mailer) Send(ctx context.Context, recipient, templateFile string, data any) error {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return err
	}

	subject := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return err
	}

	plainBody := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(plainBody, "plainBody", data); err != nil {
		return err
	}

	htmlBody := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(htmlBody, "htmlBody", data); err != nil {
		return err
	}

	request := SMTP2GORequest{
		APIKey:   m.apiKey,
		To:       []string{recipient},
		Sender:   m.sender,
		Subject:  subject.String(),
		TextBody: plainBody.String(),
		HtmlBody: htmlBody.String(),
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	for i := 1; i <= maxAttempts; i++ {
		err = m.sendViaAPI(ctx, jsonData)
		if err == nil {
			m.logger.Info("Email sent", "recipient", recipient, "subject", request.Subject)
			return nil
		}

		m.logger.Warn("SMTP2GO attempt failed", "attempt", i, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.retryDelay):
		}
	}

	return fmt.Errorf("failed to send email after %d attempts: %w", maxAttempts, err)
}

func (m Mailer) sendViaAPI(ctx context.Context, jsonData []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}

	var response SMTP2GOResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
