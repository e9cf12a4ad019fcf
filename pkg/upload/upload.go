// Package upload sends portrait images to a charsmith server.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Result is what the server returns for a stored image.
type Result struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upload: server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("upload: server returned %d: %s", e.Code, e.Message)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client posts images to one server. It makes a single attempt per upload.
type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload streams r as the "file" field of a multipart form.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (Result, error) {
	if c.base == "" {
		return Result{}, errors.New("upload: no server url")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		fw, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(fw, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/images", pr)
	if err != nil {
		pr.Close()
		return Result{}, fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	log.Debug("uploading image", "name", name, "server", c.base)
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("upload: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &StatusError{Code: resp.StatusCode, Message: errorMessage(body)}
	}

	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		return Result{}, fmt.Errorf("upload: decode response: %w", err)
	}
	if res.URL == "" {
		return Result{}, errors.New("upload: response missing url")
	}
	return res, nil
}

// errorMessage pulls echo's {"message": ...} out of an error body.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}
