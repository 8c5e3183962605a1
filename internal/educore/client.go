// Package educore is the HTTP JSON client for the EDUCORE server API
package educore

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

	"github.com/educore/monitor/internal/models"
)

// Endpoint paths on the EDUCORE server
const (
	PathCheckConflict  = "/api/teachers/check-conflict/"
	PathAvailableRooms = "/api/teachers/rooms/available/"
	PathLiveStatus     = "/api/attendance/monitor/live-status/"
	PathRoomDetail     = "/api/attendance/monitor/room/%s/"
	PathPrintReport    = "/api/attendance/monitor/print-report/"
)

// maxResponseSize bounds how much of a response body is read
const maxResponseSize = 4 << 20

// Client handles interactions with the EDUCORE API
type Client struct {
	baseURL    string
	httpClient *http.Client
	fallback   Credentials
}

// NewClient creates a new EDUCORE API client. The fallback credentials are
// used when the request context carries none.
func NewClient(baseURL string, timeout time.Duration, fallback Credentials) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		fallback: fallback,
	}
}

// envelope is the common part of EDUCORE responses
type envelope struct {
	Success *bool           `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// CheckConflict asks whether the proposed slot collides with an existing group
func (c *Client) CheckConflict(ctx context.Context, q models.ConflictQuery) (*models.ConflictResult, error) {
	body, err := c.do(ctx, http.MethodPost, PathCheckConflict, nil, q)
	if err != nil {
		return nil, err
	}

	var result models.ConflictResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode conflict response: %w", err)
	}
	return &result, nil
}

// AvailableRooms lists the rooms and whether each is free during the slot
func (c *Client) AvailableRooms(ctx context.Context, slot models.Slot) ([]models.AvailableRoom, error) {
	query := url.Values{}
	query.Set("day", slot.Day)
	query.Set("time", slot.Time)
	query.Set("duration", strconv.Itoa(slot.Duration))

	body, err := c.do(ctx, http.MethodGet, PathAvailableRooms, query, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Rooms []models.AvailableRoom `json:"rooms"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode available rooms: %w", err)
	}
	return resp.Rooms, nil
}

// LiveStatus fetches the dashboard state of all rooms
func (c *Client) LiveStatus(ctx context.Context) (*models.LiveStatus, error) {
	var status models.LiveStatus
	if err := c.getData(ctx, PathLiveStatus, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RoomDetail fetches the roster of a single room
func (c *Client) RoomDetail(ctx context.Context, roomID models.ID) (*models.RoomDetail, error) {
	var detail models.RoomDetail
	path := fmt.Sprintf(PathRoomDetail, url.PathEscape(roomID.String()))
	if err := c.getData(ctx, path, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// PrintReport fetches the payload of the printable status report
func (c *Client) PrintReport(ctx context.Context) (*models.PrintReport, error) {
	var report models.PrintReport
	if err := c.getData(ctx, PathPrintReport, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// getData performs a GET against an endpoint using the {success, data} envelope
func (c *Client) getData(ctx context.Context, path string, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return &APIError{StatusCode: http.StatusOK, Message: "response has no data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode data from %s: %w", path, err)
	}
	return nil
}

// do sends a request and returns the body of a successful response
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachCredentials(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(method+" "+path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, transportError("read "+path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: env.Error}
		if decodeErr != nil {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return nil, apiErr
	}

	if decodeErr == nil && env.Success != nil && !*env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}

	return body, nil
}

// attachCredentials forwards the session and, for mutating requests, the CSRF token
func (c *Client) attachCredentials(ctx context.Context, req *http.Request) {
	creds, _ := CredentialsFrom(ctx)
	creds = creds.merge(c.fallback)

	if creds.SessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: creds.SessionID})
	}

	if !isMutating(req.Method) || creds.CSRFToken == "" {
		return
	}
	req.Header.Set(CSRFHeaderName, creds.CSRFToken)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: creds.CSRFToken})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
