package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/c001-ZHSH/star-plan-analysis/pkg/requestid"
)

const (
	DefaultTimeout = 30 * time.Second

	// DefaultDownloadName is the name the backend gives to the workbook.
	DefaultDownloadName = "大學繁星校系分則分析.xlsx"

	fetchUniversitiesPath = "/api/fetch_universities"
	startPath             = "/api/start"
	statusPath            = "/api/status/"
	previewPath           = "/api/preview/"
	downloadPath          = "/api/download/"
)

// Client is an HTTP client for the star plan analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return newClient(baseURL, &http.Client{Timeout: timeout})
}

func newClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		validate:   validator.New(),
	}
}

// FetchUniversities asks the service for the catalog of the source page.
func (c *Client) FetchUniversities(ctx context.Context, sourceURL string) ([]Target, error) {
	var resp UniversitiesResponse
	if err := c.doJSON(ctx, "fetch universities", http.MethodPost, fetchUniversitiesPath, &SourceRequest{URL: sourceURL}, &resp); err != nil {
		return nil, err
	}
	return resp.Universities, nil
}

// StartJob launches an extraction over targets and returns the job id.
func (c *Client) StartJob(ctx context.Context, sourceURL string, targets []string) (string, error) {
	var resp StartResponse
	req := &StartRequest{URL: sourceURL, Targets: targets}
	if err := c.doJSON(ctx, "start job", http.MethodPost, startPath, req, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	var resp JobStatus
	if err := c.doJSON(ctx, "get job status", http.MethodGet, statusPath+url.PathEscape(jobID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Preview returns the sample rows of a completed job. A missing preview
// field is an empty preview.
func (c *Client) Preview(ctx context.Context, jobID string) ([]PreviewRow, error) {
	var resp PreviewResponse
	if err := c.doJSON(ctx, "get job preview", http.MethodGet, previewPath+url.PathEscape(jobID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Preview, nil
}

// DownloadURL is the handle the service serves the artifact of jobID on.
func (c *Client) DownloadURL(jobID string) string {
	return c.baseURL + downloadPath + url.PathEscape(jobID)
}

// Download is an open artifact transfer. The caller must close Body.
type Download struct {
	Filename      string
	ContentLength int64
	Body          io.ReadCloser
}

func (c *Client) Download(ctx context.Context, jobID string) (*Download, error) {
	const op = "download artifact"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	requestid.Stamp(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to call star plan service: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() {
			_ = resp.Body.Close()
		}()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, NewErrUnexpectedStatus(op, resp.StatusCode, errorMessage(bodyBytes))
	}

	return &Download{
		Filename:      attachmentName(resp.Header.Get("Content-Disposition")),
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		body = bytes.NewBuffer(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	requestid.Stamp(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: failed to call star plan service: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewErrUnexpectedStatus(op, resp.StatusCode, errorMessage(bodyBytes))
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return NewErrInvalidResponse(op, err)
	}
	if err := c.validate.Struct(out); err != nil {
		return NewErrInvalidResponse(op, err)
	}

	return nil
}

func errorMessage(body []byte) string {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return DefaultDownloadName
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return DefaultDownloadName
	}
	name := filepath.Base(params["filename"])
	if name == "" || name == "." || name == string(filepath.Separator) {
		return DefaultDownloadName
	}
	return name
}
