package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/signdesk/signdesk/internal/document"
)

const maxResponseSize = 10 << 20 // 10MB

// APIError is a failure reported by the backend. Message is the backend's own
// wording and is meant to be shown to the user as is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the contract backend's signature endpoints.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends the token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client rooted at baseURL, e.g. "https://crm.example.com/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PDFInfo fetches the page geometry of a file.
func (c *Client) PDFInfo(ctx context.Context, fileID string) (*document.PDFInfo, error) {
	var info document.PDFInfo
	if err := c.do(ctx, http.MethodGet, c.filePath(fileID, "pdf-info"), nil, document.CheckPDFInfo, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Fields fetches the saved signature fields of a file.
func (c *Client) Fields(ctx context.Context, fileID string) ([]document.SignatureField, error) {
	var list document.FieldList
	if err := c.do(ctx, http.MethodGet, c.filePath(fileID, "signature-fields"), nil, document.CheckFieldList, &list); err != nil {
		return nil, err
	}
	return list.Fields, nil
}

// SaveFields replaces the saved field list of a file.
func (c *Client) SaveFields(ctx context.Context, fileID string, fields []document.SignatureField) error {
	if fields == nil {
		fields = []document.SignatureField{}
	}
	return c.do(ctx, http.MethodPut, c.filePath(fileID, "signature-fields"), document.FieldList{Fields: fields}, nil, nil)
}

// EmbedSignature asks the backend to stamp the signature into the file.
func (c *Client) EmbedSignature(ctx context.Context, req document.EmbedRequest) (*document.EmbedResult, error) {
	var result document.EmbedResult
	if err := c.do(ctx, http.MethodPost, c.filePath(req.FileID, "embed-signature"), req, document.CheckEmbedResult, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) filePath(fileID, endpoint string) string {
	return fmt.Sprintf("%s/files/%s/%s", c.baseURL, url.PathEscape(fileID), endpoint)
}

func (c *Client) do(ctx context.Context, method, target string, in any, check func([]byte) error, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data, resp.StatusCode)}
	}
	// Some endpoints answer 200 with {"success": false, "error": "..."}.
	if ok := gjson.GetBytes(data, "success"); ok.Exists() && !ok.Bool() {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data, http.StatusUnprocessableEntity)}
	}

	if out == nil {
		return nil
	}
	if check != nil {
		if err := check(data); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the backend's error text from a response body.
func errorMessage(body []byte, status int) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error", "message", "detail", "error.message"} {
			if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		return text
	}
	return http.StatusText(status)
}
