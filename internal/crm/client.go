package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

const maxAttachmentBytes = 10 << 20

// UpstreamError describes a failed call to the CRM. It never reaches clients verbatim.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("crm %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("crm %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ListFilters narrows a remote ticket page.
type ListFilters struct {
	Status string
	Search string
}

// TicketPage is one page of remote tickets.
type TicketPage struct {
	Tickets []RemoteTicket
	Total   int
}

// TicketPatch carries editable remote ticket fields.
type TicketPatch struct {
	Status     *string `json:"status,omitempty"`
	Priority   *string `json:"priority,omitempty"`
	ManagerID  *string `json:"manager_id,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
}

// UploadAttachment is a file sent with a new comment.
type UploadAttachment struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Client is the surface of the external CRM used by the bridge.
type Client interface {
	ListTickets(ctx context.Context, page, perPage int, filters ListFilters) (*TicketPage, error)
	GetTicket(ctx context.Context, id string) (*RemoteTicket, error)
	ListComments(ctx context.Context, ticketID string) ([]RemoteComment, error)
	AddComment(ctx context.Context, ticketID, text string, attachments []UploadAttachment) (*RemoteComment, error)
	UpdateComment(ctx context.Context, ticketID, commentID, text string) (*RemoteComment, error)
	DeleteComment(ctx context.Context, ticketID, commentID string) error
	UpdateTicket(ctx context.Context, id string, patch TicketPatch) (*RemoteTicket, error)
	CloseTicket(ctx context.Context, id string) (*RemoteTicket, error)
	SearchUsers(ctx context.Context, query string) ([]RemoteUser, error)
	ListCategories(ctx context.Context) ([]RemoteCategory, error)
	ListManagers(ctx context.Context) ([]RemoteUser, error)
	DownloadAttachment(ctx context.Context, rawURL string) ([]byte, string, error)
}

// HTTPClient implements Client over the CRM REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient builds a client from config.
func NewHTTPClient(cfg config.CRMConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) ListTickets(ctx context.Context, page, perPage int, filters ListFilters) (*TicketPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	if filters.Status != "" {
		q.Set("status", filters.Status)
	}
	if filters.Search != "" {
		q.Set("search", filters.Search)
	}

	var resp struct {
		Data []json.RawMessage `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := c.do(ctx, "list tickets", http.MethodGet, "/tickets?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := &TicketPage{Total: resp.Meta.Total, Tickets: make([]RemoteTicket, 0, len(resp.Data))}
	for _, raw := range resp.Data {
		ticket, err := decodeTicket(raw)
		if err != nil {
			return nil, &UpstreamError{Op: "list tickets", Err: err}
		}
		out.Tickets = append(out.Tickets, *ticket)
	}
	return out, nil
}

func (c *HTTPClient) GetTicket(ctx context.Context, id string) (*RemoteTicket, error) {
	return c.ticketCall(ctx, "get ticket", http.MethodGet, "/tickets/"+url.PathEscape(id), nil)
}

func (c *HTTPClient) ListComments(ctx context.Context, ticketID string) ([]RemoteComment, error) {
	var resp struct {
		Data []RemoteComment `json:"data"`
	}
	if err := c.do(ctx, "list comments", http.MethodGet, "/tickets/"+url.PathEscape(ticketID)+"/comments", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *HTTPClient) AddComment(ctx context.Context, ticketID, text string, attachments []UploadAttachment) (*RemoteComment, error) {
	body := map[string]any{"body": text, "attachments": attachments}
	var resp struct {
		Data RemoteComment `json:"data"`
	}
	if err := c.do(ctx, "add comment", http.MethodPost, "/tickets/"+url.PathEscape(ticketID)+"/comments", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *HTTPClient) UpdateComment(ctx context.Context, ticketID, commentID, text string) (*RemoteComment, error) {
	path := "/tickets/" + url.PathEscape(ticketID) + "/comments/" + url.PathEscape(commentID)
	var resp struct {
		Data RemoteComment `json:"data"`
	}
	if err := c.do(ctx, "update comment", http.MethodPut, path, map[string]any{"body": text}, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *HTTPClient) DeleteComment(ctx context.Context, ticketID, commentID string) error {
	path := "/tickets/" + url.PathEscape(ticketID) + "/comments/" + url.PathEscape(commentID)
	return c.do(ctx, "delete comment", http.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) UpdateTicket(ctx context.Context, id string, patch TicketPatch) (*RemoteTicket, error) {
	return c.ticketCall(ctx, "update ticket", http.MethodPatch, "/tickets/"+url.PathEscape(id), patch)
}

func (c *HTTPClient) CloseTicket(ctx context.Context, id string) (*RemoteTicket, error) {
	return c.ticketCall(ctx, "close ticket", http.MethodPost, "/tickets/"+url.PathEscape(id)+"/close", nil)
}

func (c *HTTPClient) SearchUsers(ctx context.Context, query string) ([]RemoteUser, error) {
	var resp struct {
		Data []RemoteUser `json:"data"`
	}
	if err := c.do(ctx, "search users", http.MethodGet, "/users?search="+url.QueryEscape(query), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *HTTPClient) ListCategories(ctx context.Context) ([]RemoteCategory, error) {
	var resp struct {
		Data []RemoteCategory `json:"data"`
	}
	if err := c.do(ctx, "list categories", http.MethodGet, "/categories", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *HTTPClient) ListManagers(ctx context.Context) ([]RemoteUser, error) {
	var resp struct {
		Data []RemoteUser `json:"data"`
	}
	if err := c.do(ctx, "list managers", http.MethodGet, "/managers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// DownloadAttachment fetches a comment file. Relative URLs resolve against the CRM base URL.
func (c *HTTPClient) DownloadAttachment(ctx context.Context, rawURL string) ([]byte, string, error) {
	target := rawURL
	if strings.HasPrefix(rawURL, "/") {
		target = c.baseURL + rawURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", &UpstreamError{Op: "download attachment", Err: err}
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", &UpstreamError{Op: "download attachment", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &UpstreamError{Op: "download attachment", Status: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes+1))
	if err != nil {
		return nil, "", &UpstreamError{Op: "download attachment", Err: err}
	}
	if len(data) > maxAttachmentBytes {
		return nil, "", &UpstreamError{Op: "download attachment", Err: fmt.Errorf("attachment exceeds %d bytes", maxAttachmentBytes)}
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *HTTPClient) ticketCall(ctx context.Context, op, method, path string, body any) (*RemoteTicket, error) {
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.do(ctx, op, method, path, body, &resp); err != nil {
		return nil, err
	}
	ticket, err := decodeTicket(resp.Data)
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: err}
	}
	return ticket, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &UpstreamError{Op: op, Status: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
