// Package client is the Go client for the ANUBIS dashboard API: a thin
// HTTP wrapper plus the stateful views the dashboard is built from (the
// scan status poller, the capture upload tracker, and the fetch-once
// history views).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/Sown0205/Anubis/internal/auth"
	"github.com/Sown0205/Anubis/internal/core/model"
)

// DefaultTimeout bounds a single API request.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the server, carrying the detail
// message the server attached to it.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Detail, e.StatusCode)
}

// Client talks to one ANUBIS server. The underlying cookie jar carries
// the session across calls, so one Client is one login session.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the given base URL, e.g. "http://localhost:8000".
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("client: create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// SessionToken returns the session cookie currently held for the
// server, or "" when not logged in. The CLI persists it between runs.
func (c *Client) SessionToken() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.http.Jar.Cookies(u) {
		if cookie.Name == auth.SessionCookie {
			return cookie.Value
		}
	}
	return ""
}

// SetSessionToken seeds the cookie jar with a previously saved session.
func (c *Client) SetSessionToken(token string) {
	u, err := url.Parse(c.baseURL)
	if err != nil || token == "" {
		return
	}
	c.http.Jar.SetCookies(u, []*http.Cookie{{Name: auth.SessionCookie, Value: token, Path: "/"}})
}

// do issues a JSON request and decodes into out (when non-nil). Error
// responses are decoded from the {"detail": ...} shape; anything
// unparseable degrades to a generic message with the status code.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func apiError(code int, body []byte) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return &APIError{StatusCode: code, Detail: payload.Detail}
	}
	return &APIError{StatusCode: code, Detail: fmt.Sprintf("request failed with status %d", code)}
}

// --- Scan control ---

// StartScan begins a new scan session on the server.
func (c *Client) StartScan(ctx context.Context, settings map[string]any) (*model.ScanSession, error) {
	var resp struct {
		Session *model.ScanSession `json:"session"`
	}
	body := map[string]any{}
	if settings != nil {
		body["settings"] = settings
	}
	if err := c.do(ctx, "POST", "/api/scan/start", body, &resp); err != nil {
		return nil, err
	}
	return resp.Session, nil
}

// StopScan ends the running scan session. The session is nil when
// nothing was running.
func (c *Client) StopScan(ctx context.Context) (*model.ScanSession, error) {
	var resp struct {
		Session *model.ScanSession `json:"session"`
	}
	if err := c.do(ctx, "POST", "/api/scan/stop", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Session, nil
}

// ScanStatus fetches the current scanning state and recent results.
func (c *Client) ScanStatus(ctx context.Context) (*model.ScanStatus, error) {
	var status model.ScanStatus
	if err := c.do(ctx, "GET", "/api/scan/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ScanResults fetches every retained result of the current session.
func (c *Client) ScanResults(ctx context.Context) ([]model.ScanResult, error) {
	var resp struct {
		Results []model.ScanResult `json:"results"`
	}
	if err := c.do(ctx, "GET", "/api/scan/results", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// ScanAnalysis fetches the aggregate view of the current session.
func (c *Client) ScanAnalysis(ctx context.Context) (*model.ScanAnalysis, error) {
	var an model.ScanAnalysis
	if err := c.do(ctx, "GET", "/api/scan/results/analysis", nil, &an); err != nil {
		return nil, err
	}
	return &an, nil
}

// --- Capture analysis ---

// UploadResponse acknowledges an accepted capture upload.
type UploadResponse struct {
	AnalysisID string `json:"analysis_id"`
	Message    string `json:"message"`
	Filename   string `json:"filename"`
	FileSize   int64  `json:"file_size"`
}

// UploadCapture sends a capture file for analysis.
func (c *Client) UploadCapture(ctx context.Context, filename string, content io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("client: build upload: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("client: read capture: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("client: finish upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/pcap/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: upload: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, data)
	}

	var up UploadResponse
	if err := json.Unmarshal(data, &up); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	return &up, nil
}

// AnalysisStatus fetches the progress of one analysis job.
func (c *Client) AnalysisStatus(ctx context.Context, id string) (*model.AnalysisStatus, error) {
	var st model.AnalysisStatus
	if err := c.do(ctx, "GET", "/api/pcap/analysis/"+url.PathEscape(id)+"/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// AnalysisResults fetches the report of a completed analysis.
func (c *Client) AnalysisResults(ctx context.Context, id string) (*model.AnalysisResult, error) {
	var res model.AnalysisResult
	if err := c.do(ctx, "GET", "/api/pcap/analysis/"+url.PathEscape(id)+"/results", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Analyses lists submitted analysis jobs, newest first.
func (c *Client) Analyses(ctx context.Context, limit, offset int) (*model.AnalysisList, error) {
	path := "/api/pcap/analysis/list?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	var list model.AnalysisList
	if err := c.do(ctx, "GET", path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteAnalysis removes one analysis job and its artifacts.
func (c *Client) DeleteAnalysis(ctx context.Context, id string) error {
	return c.do(ctx, "DELETE", "/api/pcap/analysis/"+url.PathEscape(id), nil, nil)
}

// --- History ---

// History lists recorded scans, newest first.
func (c *Client) History(ctx context.Context) ([]model.HistoryItem, error) {
	var resp struct {
		Scans []model.HistoryItem `json:"scans"`
	}
	if err := c.do(ctx, "GET", "/api/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Scans, nil
}

// HistoryDetail fetches the full record of one scan.
func (c *Client) HistoryDetail(ctx context.Context, id string) (*model.HistoryDetail, error) {
	var det model.HistoryDetail
	if err := c.do(ctx, "GET", "/api/history/"+url.PathEscape(id), nil, &det); err != nil {
		return nil, err
	}
	return &det, nil
}

// DeleteHistory removes one recorded scan.
func (c *Client) DeleteHistory(ctx context.Context, id string) error {
	return c.do(ctx, "DELETE", "/api/history/"+url.PathEscape(id), nil, nil)
}

// Export downloads the JSON export of one scan (or the whole history
// when id is empty) and returns the payload with its suggested filename.
func (c *Client) Export(ctx context.Context, id string) ([]byte, string, error) {
	body := map[string]string{"scan_id": id}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("client: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/history/export", bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("client: export: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("client: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", apiError(resp.StatusCode, payload)
	}

	filename := "anubis_scan_export.json"
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			filename = params["filename"]
		}
	}
	return payload, filename, nil
}

// --- Settings ---

// Settings fetches the current settings map.
func (c *Client) Settings(ctx context.Context) (map[string]any, error) {
	var resp struct {
		Settings map[string]any `json:"settings"`
	}
	if err := c.do(ctx, "GET", "/api/settings", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Settings, nil
}

// UpdateSettings applies a partial settings change and returns the
// resulting settings map.
func (c *Client) UpdateSettings(ctx context.Context, changes map[string]any) (map[string]any, error) {
	var resp struct {
		Settings map[string]any `json:"settings"`
	}
	if err := c.do(ctx, "PUT", "/api/settings", changes, &resp); err != nil {
		return nil, err
	}
	return resp.Settings, nil
}

// SystemStatus fetches the component health snapshot.
func (c *Client) SystemStatus(ctx context.Context) (map[string]any, error) {
	var status map[string]any
	if err := c.do(ctx, "GET", "/api/settings/system/status", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// --- Auth ---

// AuthUser is the account payload returned by the auth endpoints.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, email, name, password string) (*AuthUser, error) {
	var resp struct {
		User *AuthUser `json:"user"`
	}
	body := map[string]string{"email": email, "name": name, "password": password}
	if err := c.do(ctx, "POST", "/api/auth/register", body, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Login authenticates and stores the session cookie in the client jar.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthUser, error) {
	var resp struct {
		User *AuthUser `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "POST", "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Logout ends the session on the server and clears the cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "POST", "/api/auth/logout", nil, nil)
}

// Me returns the account behind the current session.
func (c *Client) Me(ctx context.Context) (*AuthUser, error) {
	var user AuthUser
	if err := c.do(ctx, "GET", "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
