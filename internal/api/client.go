// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend base URL; all paths are relative to it.
	BaseURL string

	// Timeout for non-streaming requests (default: 30s).
	Timeout time.Duration

	// MaxRetries for transient connection failures on read-only calls
	// (default: 3). Mutating calls are never retried automatically.
	MaxRetries int

	// RetryDelay between retries (default: 1s).
	RetryDelay time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:    "http://127.0.0.1:8000",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the document assistant backend.
//
// Credentials are carried implicitly via a cookie jar, matching the
// cookie-session model of the backend. The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	// streamClient has no timeout; a stream lives as long as its context.
	// It shares the session jar with httpClient.
	streamClient *http.Client
	// retryLimiter spaces out retry attempts across all calls so a flapping
	// connection does not produce a burst of reconnects.
	retryLimiter *rate.Limiter
}

// NewClient creates a backend client with the given configuration.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 1 * time.Second
	}

	// Cookie jar carries the session cookie across calls.
	jar, _ := cookiejar.New(nil)

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Jar:     jar,
		},
		streamClient: &http.Client{Jar: jar},
		retryLimiter: rate.NewLimiter(rate.Every(config.RetryDelay), 1),
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// doJSON issues a request and decodes the 2xx response body into out.
// A no-content success leaves out untouched and returns nil. Non-2xx
// responses produce a typed ClientError carrying status, message, and the
// raw payload.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, payload)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return connectionError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return connectionError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// getJSON is doJSON for reads, with retry on connection failures.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.retryLimiter.Wait(ctx); err != nil {
				return connectionError(err)
			}
		}
		lastErr = c.doJSON(ctx, http.MethodGet, path, nil, out)
		if lastErr == nil || !IsUnreachable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// decodeError builds the typed failure for a non-2xx response. The human
// message comes from the JSON error body's detail/message field, falling
// back to the status text, then the raw body.
func decodeError(resp *http.Response) *ClientError {
	raw, _ := io.ReadAll(resp.Body)

	message := ""
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Detail != "" {
			message = body.Detail
		} else if body.Message != "" {
			message = body.Message
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}

	return &ClientError{
		Type:    ErrTypeStatus,
		Status:  resp.StatusCode,
		Message: message,
		Payload: raw,
	}
}

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// ListConversations fetches all conversation summaries.
func (c *Client) ListConversations(ctx context.Context) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	if err := c.getJSON(ctx, "/conversations", &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// CreateConversation creates a conversation and returns the new summary.
func (c *Client) CreateConversation(ctx context.Context) (*model.Conversation, error) {
	var conv model.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "/conversations", nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// UpdateConversation patches a conversation (title or pin state) and returns
// the authoritative summary. Pinning past the limit fails with status 400.
func (c *Client) UpdateConversation(ctx context.Context, id string, patch ConversationPatch) (*model.Conversation, error) {
	var conv model.Conversation
	if err := c.doJSON(ctx, http.MethodPatch, "/conversations/"+id, patch, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteConversation deletes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/conversations/"+id, nil, nil)
}

// ReorderPinned replaces the explicit order of pinned conversations.
func (c *Client) ReorderPinned(ctx context.Context, ids []string) error {
	return c.doJSON(ctx, http.MethodPut, "/conversations/pinned-order", PinnedOrderRequest{IDs: ids}, nil)
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// ListMessages fetches the authoritative ordered message list.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]*model.Message, error) {
	var msgs []*model.Message
	if err := c.getJSON(ctx, "/conversations/"+conversationID+"/messages", &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage performs the non-streaming send-and-wait exchange.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string, useDocs bool) (*SendResponse, error) {
	var resp SendResponse
	req := SendRequest{Content: content, UseDocs: useDocs}
	if err := c.doJSON(ctx, http.MethodPost, "/conversations/"+conversationID+"/messages", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OpenMessageStream starts a streaming send and returns a reader over the
// event sequence. A non-2xx response surfaces as a typed failure before any
// events are produced. The caller owns the reader and must drive Process (or
// Events) to completion; cancelling ctx aborts the underlying request.
func (c *Client) OpenMessageStream(ctx context.Context, conversationID, content string, useDocs bool) (*StreamReader, error) {
	data, err := json.Marshal(SendRequest{Content: content, UseDocs: useDocs})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/conversations/"+conversationID+"/messages:stream", bytes.NewReader(data))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, connectionError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	return NewStreamReader(resp.Body), nil
}

// =============================================================================
// ATTACHMENT OPERATIONS
// =============================================================================

// ListAttachments fetches the attachment list, most recent first.
func (c *Client) ListAttachments(ctx context.Context, conversationID string) ([]*model.Attachment, error) {
	var atts []*model.Attachment
	if err := c.getJSON(ctx, "/conversations/"+conversationID+"/attachments", &atts); err != nil {
		return nil, err
	}
	return atts, nil
}

// UploadAttachment uploads a file and returns the created attachment.
// Exceeding the attachment limit fails with status 400.
func (c *Client) UploadAttachment(ctx context.Context, conversationID, filename string, content io.Reader) (*model.Attachment, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to build upload", Cause: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to read file", Cause: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to build upload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/conversations/"+conversationID+"/attachments", &buf)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, connectionError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}

	var att model.Attachment
	if err := json.NewDecoder(resp.Body).Decode(&att); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return &att, nil
}

// AttachmentContentURL returns the stable URL for an attachment's body.
func (c *Client) AttachmentContentURL(attachmentID string) string {
	return c.config.BaseURL + "/attachments/" + attachmentID + "/content"
}

// FetchAttachmentContent downloads an attachment body for previewing.
func (c *Client) FetchAttachmentContent(ctx context.Context, attachmentID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AttachmentContentURL(attachmentID), nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, connectionError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSettings fetches the server-side user preferences.
func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	var settings Settings
	if err := c.getJSON(ctx, "/settings", &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings patches the server-side user preferences.
func (c *Client) UpdateSettings(ctx context.Context, patch SettingsPatch) (*Settings, error) {
	var settings Settings
	if err := c.doJSON(ctx, http.MethodPatch, "/settings", patch, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}
