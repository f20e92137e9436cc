// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mathpix is a client for the Mathpix v3 PDF API: submit a document,
// poll its processing status, and fetch the converted Markdown.
package mathpix

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
	"os"
	"path/filepath"
	"strings"

	"github.com/paideia/paideia/internal/httputil"
	"github.com/paideia/paideia/pkg/types"
)

// DefaultBaseURL is the production Mathpix API root.
const DefaultBaseURL = "https://api.mathpix.com"

// formatMarkdown is the conversion format requested for every submission.
const formatMarkdown = "md"

// maxErrorBody bounds how much of a failed response body is kept in an APIError.
const maxErrorBody = 4 << 10

// ErrJobFailed reports that Mathpix marked a job or its conversion as failed.
var ErrJobFailed = errors.New("mathpix job failed")

// APIError is returned for non-2xx responses and for 2xx responses whose
// JSON body carries an "error" field.
type APIError struct {
	StatusCode int
	// ID is the Mathpix error identifier (e.g. "http_unauthorized"), if any.
	ID      string
	Message string
}

func (e *APIError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("mathpix API error (HTTP %d, %s): %s", e.StatusCode, e.ID, e.Message)
	}
	return fmt.Sprintf("mathpix API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// SubmitOptions tunes a PDF submission. Markdown output is always requested
// and DOCX output is always disabled.
type SubmitOptions struct {
	// PageRanges restricts processing, e.g. "1-3,7". Empty means all pages.
	PageRanges string
}

// Client talks to the Mathpix API with one set of credentials.
type Client struct {
	http  *http.Client
	creds types.Credentials
	cfg   types.MathpixConfig
}

// New creates a client bound to creds. An empty cfg.BaseURL selects
// DefaultBaseURL. The client does not validate credentials; Mathpix rejects
// bad ones with an APIError.
func New(creds types.Credentials, cfg types.MathpixConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http:  &http.Client{Timeout: cfg.Timeout},
		creds: creds,
		cfg:   cfg,
	}
}

type submitOptionsJSON struct {
	ConversionFormats map[string]bool `json:"conversion_formats"`
	PageRanges        string          `json:"page_ranges,omitempty"`
}

type errorInfo struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type submitResponse struct {
	PDFID     string     `json:"pdf_id"`
	Error     string     `json:"error"`
	ErrorInfo *errorInfo `json:"error_info"`
}

// Submit uploads the file at path and returns the job handle (pdf_id).
func (c *Client) Submit(ctx context.Context, path string, opts SubmitOptions) (string, error) {
	body, contentType, err := buildSubmitBody(path, opts)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v3/pdf", body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var out submitResponse
	if err := c.doJSON(ctx, req, &out); err != nil {
		return "", fmt.Errorf("submitting %s: %w", path, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("submitting %s: %w", path, remoteError(http.StatusOK, out.Error, out.ErrorInfo))
	}
	if out.PDFID == "" {
		return "", fmt.Errorf("submitting %s: response carried no pdf_id", path)
	}
	return out.PDFID, nil
}

func buildSubmitBody(path string, opts SubmitOptions) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	optionsJSON, err := json.Marshal(submitOptionsJSON{
		ConversionFormats: map[string]bool{formatMarkdown: true, "docx": false},
		PageRanges:        opts.PageRanges,
	})
	if err != nil {
		return nil, "", fmt.Errorf("encoding options: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	if err := mw.WriteField("options_json", string(optionsJSON)); err != nil {
		return nil, "", fmt.Errorf("writing options: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

type statusResponse struct {
	Status            string     `json:"status"`
	NumPages          int        `json:"num_pages"`
	NumPagesCompleted int        `json:"num_pages_completed"`
	PercentDone       float64    `json:"percent_done"`
	Error             string     `json:"error"`
	ErrorInfo         *errorInfo `json:"error_info"`
}

// Status returns the processing state of a submitted PDF.
func (c *Client) Status(ctx context.Context, pdfID string) (types.Progress, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v3/pdf/"+url.PathEscape(pdfID), nil)
	if err != nil {
		return types.Progress{}, fmt.Errorf("creating request: %w", err)
	}

	var out statusResponse
	if err := c.doJSON(ctx, req, &out); err != nil {
		return types.Progress{}, fmt.Errorf("fetching status of %s: %w", pdfID, err)
	}

	p := types.Progress{
		PDFID:             pdfID,
		Status:            types.JobStatus(out.Status),
		NumPages:          out.NumPages,
		NumPagesCompleted: out.NumPagesCompleted,
		PercentDone:       out.PercentDone,
	}
	if out.Error != "" {
		// An error body without a status means the request itself failed
		// (e.g. unknown pdf_id); with status "error" the job failed.
		if p.Status != types.JobError {
			return types.Progress{}, fmt.Errorf("fetching status of %s: %w", pdfID, remoteError(http.StatusOK, out.Error, out.ErrorInfo))
		}
		p.Error = out.Error
		if out.ErrorInfo != nil && out.ErrorInfo.Message != "" {
			p.Error = out.ErrorInfo.Message
		}
	}
	return p, nil
}

type converterResponse struct {
	Status           string `json:"status"`
	ConversionStatus map[string]struct {
		Status    string     `json:"status"`
		ErrorInfo *errorInfo `json:"error_info"`
	} `json:"conversion_status"`
	Error     string     `json:"error"`
	ErrorInfo *errorInfo `json:"error_info"`
}

// ConversionStatus returns the state of each requested output format.
func (c *Client) ConversionStatus(ctx context.Context, pdfID string) (map[string]types.ConversionStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v3/converter/"+url.PathEscape(pdfID), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out converterResponse
	if err := c.doJSON(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("fetching conversion status of %s: %w", pdfID, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("fetching conversion status of %s: %w", pdfID, remoteError(http.StatusOK, out.Error, out.ErrorInfo))
	}

	statuses := make(map[string]types.ConversionStatus, len(out.ConversionStatus))
	for format, s := range out.ConversionStatus {
		statuses[format] = types.ConversionStatus(s.Status)
	}
	return statuses, nil
}

// Markdown fetches the converted Markdown text of a completed job.
func (c *Client) Markdown(ctx context.Context, pdfID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v3/pdf/"+url.PathEscape(pdfID)+"."+formatMarkdown, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("fetching markdown of %s: %w", pdfID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading markdown of %s: %w", pdfID, err)
	}
	return string(data), nil
}

// do sends req with auth headers and returns the response for 2xx statuses.
// Other statuses are turned into an *APIError and the body is closed.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req.Header.Set("app_id", c.creds.AppID)
	req.Header.Set("app_key", c.creds.AppKey)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, parseAPIError(resp)
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Error     string     `json:"error"`
		ErrorInfo *errorInfo `json:"error_info"`
	}
	if err := json.Unmarshal(data, &body); err == nil && (body.Error != "" || body.ErrorInfo != nil) {
		return remoteError(resp.StatusCode, body.Error, body.ErrorInfo)
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func remoteError(code int, msg string, info *errorInfo) *APIError {
	e := &APIError{StatusCode: code, Message: msg}
	if info != nil {
		e.ID = info.ID
		if info.Message != "" {
			e.Message = info.Message
		}
	}
	if e.Message == "" {
		e.Message = e.ID
	}
	return e
}
