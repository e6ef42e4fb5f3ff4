package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/isdelr/sheetcharts-be/internal/models"
)

// APIError is a non-2xx response. Msg is the server's {msg} text.
type APIError struct {
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Msg)
}

// Me is the identity behind the current token.
type Me struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// UploadView is a single upload as the API returns it.
type UploadView struct {
	UploadID       string                 `json:"uploadId,omitempty"`
	Filename       string                 `json:"filename"`
	Data           []models.Row           `json:"data"`
	Visualizations []models.Visualization `json:"visualizations"`
}

// VisualizationRequest is the body of a save-visualization call. Data and
// Image are optional; the server derives them when empty.
type VisualizationRequest struct {
	Type  models.ChartType `json:"type"`
	XAxis string           `json:"xAxis"`
	YAxis string           `json:"yAxis"`
	Data  json.RawMessage  `json:"data,omitempty"`
	Image string           `json:"image,omitempty"`
}

// Client calls the API on behalf of one user and records what it did in a
// History.
type Client struct {
	baseURL string
	http    *http.Client
	history *History

	mu    sync.RWMutex
	token string
}

// New creates a Client. history may be nil; httpClient defaults to a client
// with a 30 second timeout.
func New(baseURL string, history *History, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if history == nil {
		history = NewHistory()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, history: history}
}

// History is the session's action log.
func (c *Client) History() *History { return c.history }

// Token returns the current auth token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken installs a token obtained elsewhere.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Signup creates an account.
func (c *Client) Signup(ctx context.Context, username, password string, role models.Role) error {
	body := map[string]string{"username": username, "password": password, "role": string(role)}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/signup", body, nil); err != nil {
		return err
	}
	c.history.Add(fmt.Sprintf("Signed up as %s", username))
	return nil
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return err
	}
	c.SetToken(out.Token)
	c.history.Add(fmt.Sprintf("Logged in as %s", username))
	return nil
}

// Me returns the current identity.
func (c *Client) Me(ctx context.Context) (Me, error) {
	var out Me
	err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	return out, err
}

// Upload sends a spreadsheet and returns the new upload id.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, content); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		UploadID string `json:"uploadId"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	c.history.Add(fmt.Sprintf("Uploaded file: %s", filename))
	return out.UploadID, nil
}

// UploadHistory lists the user's uploads, newest first.
func (c *Client) UploadHistory(ctx context.Context) ([]models.Upload, error) {
	var out []models.Upload
	err := c.doJSON(ctx, http.MethodGet, "/api/upload/history", nil, &out)
	return out, err
}

// LatestUpload returns the user's most recent upload.
func (c *Client) LatestUpload(ctx context.Context) (UploadView, error) {
	var out UploadView
	err := c.doJSON(ctx, http.MethodGet, "/api/upload/latest", nil, &out)
	return out, err
}

// GetUpload returns one upload with its rows and visualizations.
func (c *Client) GetUpload(ctx context.Context, uploadID string) (UploadView, error) {
	var out UploadView
	err := c.doJSON(ctx, http.MethodGet, "/api/upload/"+url.PathEscape(uploadID), nil, &out)
	return out, err
}

// SaveVisualization appends a chart to an upload and returns the full list.
func (c *Client) SaveVisualization(ctx context.Context, uploadID string, v VisualizationRequest) ([]models.Visualization, error) {
	var out struct {
		Visualizations []models.Visualization `json:"visualizations"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/upload/visualize/"+url.PathEscape(uploadID), v, &out); err != nil {
		return nil, err
	}
	c.history.Add(fmt.Sprintf("Saved %s visualization for upload ID %s", v.Type, uploadID))
	return out.Visualizations, nil
}

// Stats returns the admin usage counters.
func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var out models.Stats
	err := c.doJSON(ctx, http.MethodGet, "/api/admin/stats", nil, &out)
	return out, err
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("x-auth-token", tok)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
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
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env struct {
			Msg string `json:"msg"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&env)
		if env.Msg == "" {
			env.Msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Msg: env.Msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
