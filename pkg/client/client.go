// Package client is a typed HTTP client for the meeting service API, used by
// the polling participants and the end-to-end tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/dto"
)

const (
	DefaultTimeout = 10 * time.Second

	headerOperatorKey = "X-Operator-Key"
	headerJoinToken   = "X-Join-Token"
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("meeting api: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type Client struct {
	baseURL     string
	http        *http.Client
	operatorKey string
	joinToken   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithOperatorKey authenticates every request as the operator.
func WithOperatorKey(key string) Option {
	return func(c *Client) { c.operatorKey = key }
}

// WithJoinToken authenticates every request as the visitor holding token.
func WithJoinToken(token string) Option {
	return func(c *Client) { c.joinToken = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SyncConfig(ctx context.Context) (*dto.SyncConfigResponse, error) {
	return call[dto.SyncConfigResponse](ctx, c, http.MethodGet, "/api/v1/sync/config", nil)
}

func (c *Client) GetBooking(ctx context.Context, bookingID uint) (*dto.BookingResponse, error) {
	return call[dto.BookingResponse](ctx, c, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", bookingID), nil)
}

func (c *Client) StartMeeting(ctx context.Context, bookingID uint) (*dto.StartMeetingResponse, error) {
	return call[dto.StartMeetingResponse](ctx, c, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/meetings", bookingID), nil)
}

func (c *Client) IssueJoinToken(ctx context.Context, bookingID uint) (*dto.JoinTokenResponse, error) {
	return call[dto.JoinTokenResponse](ctx, c, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/join-tokens", bookingID), nil)
}

func (c *Client) JoinInfo(ctx context.Context, bookingID uint) (*dto.JoinInfoResponse, error) {
	return call[dto.JoinInfoResponse](ctx, c, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d/join", bookingID), nil)
}

func (c *Client) GetMeeting(ctx context.Context, meetingID uint) (*dto.MeetingResponse, error) {
	return call[dto.MeetingResponse](ctx, c, http.MethodGet, fmt.Sprintf("/api/v1/meetings/%d", meetingID), nil)
}

func (c *Client) EndMeeting(ctx context.Context, meetingID uint, recordingURL string) (*dto.MeetingResponse, error) {
	body := dto.EndMeetingRequest{RecordingURL: recordingURL}
	return call[dto.MeetingResponse](ctx, c, http.MethodPost, fmt.Sprintf("/api/v1/meetings/%d/end", meetingID), body)
}

func (c *Client) EnterWaiting(ctx context.Context, meetingID uint, name, email string) (*dto.WaitingEntryResponse, error) {
	body := dto.EnterWaitingRequest{VisitorName: name, VisitorEmail: email}
	return call[dto.WaitingEntryResponse](ctx, c, http.MethodPost, fmt.Sprintf("/api/v1/meetings/%d/waiting", meetingID), body)
}

func (c *Client) WaitingStatus(ctx context.Context, meetingID uint, email string) (*dto.WaitingEntryResponse, error) {
	path := fmt.Sprintf("/api/v1/meetings/%d/waiting/status?email=%s", meetingID, url.QueryEscape(email))
	return call[dto.WaitingEntryResponse](ctx, c, http.MethodGet, path, nil)
}

// Queue lists a meeting's waiting entries, optionally only those in status.
func (c *Client) Queue(ctx context.Context, meetingID uint, status string) ([]dto.WaitingEntryResponse, error) {
	path := fmt.Sprintf("/api/v1/meetings/%d/waiting", meetingID)
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	return list[dto.WaitingEntryResponse](ctx, c, http.MethodGet, path)
}

func (c *Client) Admit(ctx context.Context, entryID uint) (*dto.WaitingEntryResponse, error) {
	return call[dto.WaitingEntryResponse](ctx, c, http.MethodPost, fmt.Sprintf("/api/v1/waiting/%d/admit", entryID), nil)
}

func (c *Client) Reject(ctx context.Context, entryID uint) (*dto.WaitingEntryResponse, error) {
	return call[dto.WaitingEntryResponse](ctx, c, http.MethodPost, fmt.Sprintf("/api/v1/waiting/%d/reject", entryID), nil)
}

func (c *Client) PendingCount(ctx context.Context) (int64, error) {
	var out dto.PendingCountResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications/count", nil, &out); err != nil {
		return 0, err
	}
	return out.Pending, nil
}

// Messages returns messages newer than afterID; zero returns the full history.
func (c *Client) Messages(ctx context.Context, meetingID, afterID uint) ([]dto.MessageResponse, error) {
	path := fmt.Sprintf("/api/v1/meetings/%d/messages", meetingID)
	if afterID > 0 {
		path += "?after=" + strconv.FormatUint(uint64(afterID), 10)
	}
	return list[dto.MessageResponse](ctx, c, http.MethodGet, path)
}

func (c *Client) PostMessage(ctx context.Context, meetingID uint, senderName, content string) (*dto.MessageResponse, error) {
	body := dto.PostMessageRequest{SenderName: senderName, Content: content}
	return call[dto.MessageResponse](ctx, c, http.MethodPost, fmt.Sprintf("/api/v1/meetings/%d/messages", meetingID), body)
}

func (c *Client) Files(ctx context.Context, meetingID uint) ([]dto.FileResponse, error) {
	return list[dto.FileResponse](ctx, c, http.MethodGet, fmt.Sprintf("/api/v1/meetings/%d/files", meetingID))
}

func (c *Client) AttachFile(ctx context.Context, meetingID uint, uploadedBy, fileURL string) (*dto.FileResponse, error) {
	body := dto.AttachFileRequest{UploadedBy: uploadedBy, URL: fileURL}
	return call[dto.FileResponse](ctx, c, http.MethodPost, fmt.Sprintf("/api/v1/meetings/%d/files", meetingID), body)
}

func (c *Client) UploadFile(ctx context.Context, meetingID uint, uploadedBy, fileName string, r io.Reader) (*dto.FileResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("uploaded_by", uploadedBy); err != nil {
		return nil, err
	}
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf("/api/v1/meetings/%d/files", meetingID), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out dto.FileResponse
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signature requests an SDK signature. Visitors pass the email they queued
// with; operators pass "".
func (c *Client) Signature(ctx context.Context, sessionNumber string, role int, email string) (*dto.SignatureResponse, error) {
	body := dto.SignatureRequest{SessionNumber: sessionNumber, Role: &role, Email: email}
	return call[dto.SignatureResponse](ctx, c, http.MethodPost, "/api/v1/signature", body)
}

func (c *Client) Summary(ctx context.Context) (*dto.SummaryResponse, error) {
	return call[dto.SummaryResponse](ctx, c, http.MethodGet, "/api/v1/analytics/summary", nil)
}

func (c *Client) Recordings(ctx context.Context) ([]dto.RecordingResponse, error) {
	return list[dto.RecordingResponse](ctx, c, http.MethodGet, "/api/v1/analytics/recordings")
}

func call[T any](ctx context.Context, c *Client, method, path string, in any) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func list[T any](ctx context.Context, c *Client, method, path string) ([]T, error) {
	var out []T
	if err := c.do(ctx, method, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.operatorKey != "" {
		req.Header.Set(headerOperatorKey, c.operatorKey)
	}
	if c.joinToken != "" {
		req.Header.Set(headerJoinToken, c.joinToken)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er dto.ErrorResponse
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&er) == nil && er.Message != "" {
			apiErr.Message = er.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
