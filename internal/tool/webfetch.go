package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
)

const webFetchDescription = `Fetches content from a specified URL and returns it in the requested format.

Usage notes:
  - The URL must be a fully-formed valid URL starting with http:// or https://
  - This tool is read-only and does not modify any files
  - Results may be truncated if the content is very large (>5MB limit)
  - Use format "markdown" for readable content, "text" for plain text, "html" for raw HTML`

const (
	maxResponseSize     = 5 * 1024 * 1024
	defaultFetchTimeout = 30 * time.Second
	maxFetchTimeout     = 120 * time.Second
	defaultFetchRetries = 3
)

// WebFetchTool fetches web content, retrying transient failures.
type WebFetchTool struct {
	client  *http.Client
	retries int
	maxSize int64
}

// WebFetchInput is the input for the web_fetch tool.
type WebFetchInput struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Timeout int    `json:"timeout,omitempty"` // seconds
}

// WebFetchOptions tune the fetch tool. Zero values fall back to the
// package defaults.
type WebFetchOptions struct {
	Timeout  time.Duration
	Retries  int
	MaxBytes int64
}

// NewWebFetchTool creates a web_fetch tool.
func NewWebFetchTool(opts WebFetchOptions) *WebFetchTool {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = defaultFetchRetries
	}
	maxSize := opts.MaxBytes
	if maxSize <= 0 {
		maxSize = maxResponseSize
	}
	return &WebFetchTool{
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		maxSize: maxSize,
	}
}

func (t *WebFetchTool) Name() string        { return "web_fetch" }
func (t *WebFetchTool) Description() string { return webFetchDescription }

func (t *WebFetchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {
				"type": "string",
				"description": "The URL to fetch content from"
			},
			"format": {
				"type": "string",
				"enum": ["text", "markdown", "html"],
				"description": "The format to return the content in (text, markdown, or html)"
			},
			"timeout": {
				"type": "integer",
				"description": "Optional timeout in seconds (max 120)"
			}
		},
		"required": ["url", "format"]
	}`)
}

func (t *WebFetchTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var params WebFetchInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	if !strings.HasPrefix(params.URL, "http://") && !strings.HasPrefix(params.URL, "https://") {
		return nil, fmt.Errorf("URL must start with http:// or https://")
	}
	if params.Format != "text" && params.Format != "markdown" && params.Format != "html" {
		return nil, fmt.Errorf("format must be 'text', 'markdown', or 'html'")
	}

	timeout := t.client.Timeout
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout) * time.Second
		if timeout > maxFetchTimeout {
			timeout = maxFetchTimeout
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body []byte
	var contentType string

	fetch := func() error {
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, params.URL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", "quarry/1.0")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", acceptHeader(params.Format))

		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("request failed with status code: %d", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("request failed with status code: %d", resp.StatusCode))
		}
		if resp.ContentLength > t.maxSize {
			return backoff.Permanent(fmt.Errorf("response too large (exceeds %d byte limit)", t.maxSize))
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxSize+1))
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if int64(len(data)) > t.maxSize {
			return backoff.Permanent(fmt.Errorf("response too large (exceeds %d byte limit)", t.maxSize))
		}

		body = data
		contentType = resp.Header.Get("Content-Type")
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(t.retries)),
		reqCtx,
	)
	if err := backoff.Retry(fetch, policy); err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Tool: t.Name(), Command: params.URL, Timeout: timeout}
		}
		return nil, err
	}

	content := string(body)
	var output string
	var err error
	switch params.Format {
	case "markdown":
		if strings.Contains(contentType, "text/html") {
			output, err = convertHTMLToMarkdown(content)
			if err != nil {
				return nil, fmt.Errorf("failed to convert HTML to markdown: %w", err)
			}
		} else {
			output = content
		}
	case "text":
		if strings.Contains(contentType, "text/html") {
			output, err = extractTextFromHTML(content)
			if err != nil {
				return nil, fmt.Errorf("failed to extract text from HTML: %w", err)
			}
		} else {
			output = content
		}
	default:
		output = content
	}

	return &Result{
		Title:  fmt.Sprintf("%s (%s)", params.URL, contentType),
		Output: output,
		Metadata: map[string]any{
			"url":         params.URL,
			"contentType": contentType,
			"bytes":       len(body),
		},
	}, nil
}

func acceptHeader(format string) string {
	switch format {
	case "markdown":
		return "text/markdown;q=1.0, text/x-markdown;q=0.9, text/plain;q=0.8, text/html;q=0.7, */*;q=0.1"
	case "text":
		return "text/plain;q=1.0, text/markdown;q=0.9, text/html;q=0.8, */*;q=0.1"
	default:
		return "text/html;q=1.0, application/xhtml+xml;q=0.9, text/plain;q=0.8, */*;q=0.1"
	}
}

// extractTextFromHTML strips scripts, styles, and other non-content
// elements and returns the remaining text.
func extractTextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, iframe, object, embed").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

// convertHTMLToMarkdown converts HTML content to Markdown.
func convertHTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "*",
	})
	converter.Remove("script", "style", "meta", "link")
	return converter.ConvertString(html)
}
