package profiles

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/matchdeck/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	requestIDHeader = "X-Request-ID"
	// Limit for the diagnostic body carried in errors and logs.
	maxDiagnosticLength = 512
)

// StatusError is returned for non-2xx responses. Body is diagnostic text only.
type StatusError struct {
	Status string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bad status: %s", e.Status)
	}
	return fmt.Sprintf("bad status: %s: %s", e.Status, e.Body)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	req.Header.Set("Accept", contentType)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := utils.TruncateForLog(string(data), maxDiagnosticLength)
		c.logger.Debug("search service returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", body),
		)
		return &StatusError{Status: resp.Status, Code: resp.StatusCode, Body: body}
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request",
		zap.String("url", req.URL.String()),
		zap.String("request_id", req.Header.Get(requestIDHeader)),
	)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set(requestIDHeader, uuid.NewString())

	return req
}
