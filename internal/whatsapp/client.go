// Package whatsapp implements the Meta Cloud API client used for outbound
// messages and webhook payload parsing.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/config"
)

// Client talks to the Meta Cloud API for one business phone number.
type Client struct {
	baseURL       string
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
	logger        *zap.Logger
}

func NewClient(cfg *config.WhatsAppConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger,
	}
}

// SendResponse is the useful subset of the Cloud API send response.
type SendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// MessageID returns the provider id of the first accepted message.
func (r *SendResponse) MessageID() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

type textPayload struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templatePayload struct {
	Name     string           `json:"name"`
	Language templateLanguage `json:"language"`
}

type documentPayload struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Filename string `json:"filename"`
	Caption  string `json:"caption,omitempty"`
}

type sendRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *textPayload     `json:"text,omitempty"`
	Template         *templatePayload `json:"template,omitempty"`
	Document         *documentPayload `json:"document,omitempty"`
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, toPhone, text string) (*SendResponse, error) {
	req := sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               FormatPhone(toPhone),
		Type:             "text",
		Text:             &textPayload{Body: text},
	}
	return c.postMessage(ctx, req)
}

// SendTemplate sends an approved template message.
func (c *Client) SendTemplate(ctx context.Context, toPhone, templateName, languageCode string) (*SendResponse, error) {
	if languageCode == "" {
		languageCode = "en"
	}
	req := sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               FormatPhone(toPhone),
		Type:             "template",
		Template: &templatePayload{
			Name:     templateName,
			Language: templateLanguage{Code: languageCode},
		},
	}
	return c.postMessage(ctx, req)
}

// SendDocument sends a document by previously uploaded media id.
func (c *Client) SendDocument(ctx context.Context, toPhone, mediaID, filename, caption string) (*SendResponse, error) {
	req := sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               FormatPhone(toPhone),
		Type:             "document",
		Document: &documentPayload{
			ID:       mediaID,
			Filename: filename,
			Caption:  caption,
		},
	}
	return c.postMessage(ctx, req)
}

func (c *Client) postMessage(ctx context.Context, payload sendRequest) (*SendResponse, error) {
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("whatsapp api returned status %d: %s", resp.StatusCode, string(data))
	}

	var sendResp SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sendResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &sendResp, nil
}

// MarkRead tells the provider a message was read in the dashboard, so the
// customer sees blue ticks.
func (c *Client) MarkRead(ctx context.Context, externalMessageID string) error {
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	body, err := json.Marshal(map[string]string{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        externalMessageID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whatsapp api returned status %d", resp.StatusCode)
	}
	return nil
}

// UploadMedia uploads a file and returns the provider media id, for sending
// documents without a public URL.
func (c *Client) UploadMedia(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	url := fmt.Sprintf("%s/%s/media", c.baseURL, c.phoneNumberID)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.WriteField("messaging_product", "whatsapp"); err != nil {
		return "", fmt.Errorf("failed to write form field: %w", err)
	}
	if err := writer.WriteField("type", contentType); err != nil {
		return "", fmt.Errorf("failed to write form field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("whatsapp api returned status %d: %s", resp.StatusCode, string(data))
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return uploadResp.ID, nil
}

// FormatPhone normalizes a phone number for the Cloud API: digits only, with
// the Thai country code prepended for local numbers.
func FormatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if !strings.HasPrefix(digits, "66") && len(digits) == 9 {
		return "66" + digits
	}
	if strings.HasPrefix(digits, "0") && len(digits) == 10 {
		return "66" + digits[1:]
	}
	return digits
}
