// Package raster is the client for the external page-rasterization function
// that renders one PDF page to a PNG image.
package raster

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lllllllleong/architecturereview/internal/errs"
)

// DefaultDPI is used when a request does not set one.
const DefaultDPI = 150

// SourceHints let the converter read the original document itself instead of
// the bytes in the request.
type SourceHints struct {
	Bucket string
	Key    string
}

// Request describes one page to render. PageNumber is 1-based and refers to
// PDF, or to the hinted source document when Hints is set.
type Request struct {
	PDF        []byte
	PageNumber int
	Hints      *SourceHints
	DPI        int
}

// Image is a rendered page.
type Image struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Converter renders a single page to an image.
type Converter interface {
	ConvertPageToImage(ctx context.Context, req Request) (*Image, error)
}

// HTTPConverter calls the rasterization function over HTTP.
type HTTPConverter struct {
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
}

// NewHTTPConverter returns a converter posting to url.
func NewHTTPConverter(url string) (*HTTPConverter, error) {
	if url == "" {
		return nil, fmt.Errorf("rasterizer url must be provided")
	}
	return &HTTPConverter{
		url:        url,
		client:     &http.Client{Timeout: 60 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
	}, nil
}

type convertRequest struct {
	PDFBase64  string `json:"pdfBase64,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
	Key        string `json:"key,omitempty"`
	PageNumber int    `json:"pageNumber"`
	DPI        int    `json:"dpi"`
}

type convertResponse struct {
	ImageBase64 string `json:"imageBase64"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Size        int    `json:"size"`
	Error       string `json:"error"`
}

type rateLimitError struct{}

func (e *rateLimitError) Error() string { return "rate limited" }

// ConvertPageToImage renders req.PageNumber. Any failure is an
// errs.ErrExternalCall.
func (c *HTTPConverter) ConvertPageToImage(ctx context.Context, req Request) (*Image, error) {
	if req.PageNumber < 1 {
		return nil, errs.Validation("invalid page number %d", req.PageNumber)
	}
	body := convertRequest{PageNumber: req.PageNumber, DPI: req.DPI}
	if body.DPI <= 0 {
		body.DPI = DefaultDPI
	}
	switch {
	case req.Hints != nil && req.Hints.Bucket != "" && req.Hints.Key != "":
		body.Bucket, body.Key = req.Hints.Bucket, req.Hints.Key
	case len(req.PDF) > 0:
		body.PDFBase64 = base64.StdEncoding.EncodeToString(req.PDF)
	default:
		return nil, errs.Validation("either pdf bytes or source hints are required")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling rasterize request: %w", err)
	}

	var img *Image
	err = c.retry(ctx, func() error {
		var callErr error
		img, callErr = c.call(ctx, payload)
		return callErr
	})
	if err != nil {
		return nil, errs.External("rasterizer", err)
	}
	return img, nil
}

func (c *HTTPConverter) call(ctx context.Context, payload []byte) (*Image, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, &rateLimitError{}
	}

	var result convertResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response (status %d): %w", httpResp.StatusCode, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("converter error (status %d): %s", httpResp.StatusCode, result.Error)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("converter returned an empty image")
	}
	return &Image{Data: data, MIMEType: "image/png", Width: result.Width, Height: result.Height}, nil
}

// retry retries rate-limited calls with exponential backoff.
func (c *HTTPConverter) retry(ctx context.Context, fn func() error) error {
	backoff := c.backoff
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if _, ok := lastErr.(*rateLimitError); !ok {
			return lastErr
		}
		if attempt < c.maxRetries {
			slog.Warn("Rasterizer rate limited, will retry.", "attempt", attempt+1, "backoff", backoff.String())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	return lastErr
}
