package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"clipsight/internal/jobstore"
)

// apiClient talks to the clipsightd HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) Analyze(ctx context.Context, rawURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"url": rawURL})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/analyze", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := c.doJSON(req, http.StatusAccepted, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

func (c *apiClient) Upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read video: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/analyze/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := c.doJSON(req, http.StatusAccepted, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

func (c *apiClient) Status(ctx context.Context, jobID string) (jobstore.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/jobs/"+jobID, nil)
	if err != nil {
		return jobstore.Record{}, err
	}
	var record jobstore.Record
	if err := c.doJSON(req, http.StatusOK, &record); err != nil {
		return jobstore.Record{}, err
	}
	return record, nil
}

func (c *apiClient) List(ctx context.Context) ([]jobstore.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/jobs", nil)
	if err != nil {
		return nil, err
	}
	var records []jobstore.Record
	if err := c.doJSON(req, http.StatusOK, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *apiClient) Report(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/jobs/"+jobID+"/report", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", wrapRequestError(err, c.base)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}
	return string(data), nil
}

// Watch tails the job's event stream, invoking fn for each stage event.
// It returns once the server ends the stream after a terminal stage.
func (c *apiClient) Watch(ctx context.Context, jobID string, fn func(stage string) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/jobs/"+jobID+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream stays open for the lifetime of the job, so the client
	// timeout must not apply here.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return wrapRequestError(err, c.base)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		stage, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		if err := fn(stage); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("event stream: %w", err)
	}
	return ctx.Err()
}

func (c *apiClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapRequestError(err, c.base)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

func (c *apiClient) doJSON(req *http.Request, wantStatus int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapRequestError(err, c.base)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("%s (HTTP %d)", payload.Error, resp.StatusCode)
	}
	return fmt.Errorf("unexpected response: HTTP %d", resp.StatusCode)
}

func wrapRequestError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon: %s refused the connection; start the daemon with `clipsightd`", base)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}
