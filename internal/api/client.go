// Package api talks to the replay server that collects finished session
// recordings.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/trackworks/railcore/pkg/core"
)

const sessionsPath = "/api/v1/sessions"

// ErrRejected is returned when the server refuses the API key.
var ErrRejected = errors.New("api key rejected")

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks that the server answers.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	return expectOK(resp, "healthcheck")
}

// Upload posts a recording file with its metadata as a multipart form. The
// body is streamed from disk.
func (c *Client) Upload(ctx context.Context, path string, meta core.UploadMetadata) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, f, filepath.Base(path), meta))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sessionsPath, pr)
	if err != nil {
		pr.CloseWithError(err)
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("upload request failed: %w", err)
	}
	return expectOK(resp, "upload")
}

func writeForm(form *multipart.Writer, file io.Reader, name string, meta core.UploadMetadata) error {
	fields := []struct{ key, value string }{
		{"filename", name},
		{"scenario", meta.ScenarioName},
		{"session", meta.SessionName},
		{"duration", strconv.FormatFloat(meta.SessionDuration, 'f', 3, 64)},
		{"tag", meta.Tag},
	}
	for _, fld := range fields {
		if err := form.WriteField(fld.key, fld.value); err != nil {
			return fmt.Errorf("write field %s: %w", fld.key, err)
		}
	}
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy recording: %w", err)
	}
	return form.Close()
}

// expectOK closes resp and turns any non-2xx status into an error carrying
// the start of the body.
func expectOK(resp *http.Response, what string) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	err := fmt.Errorf("%s returned status %d: %s", what, resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errors.Join(ErrRejected, err)
	}
	return err
}
