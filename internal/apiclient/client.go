// Package apiclient is the typed client for the transcription backend's REST
// API. The engine only consumes these endpoints; it does not own them.
// There is deliberately no retry or backoff here, and in-flight requests are
// not cancelled when a newer one supersedes them; responses apply in
// completion order, last write wins.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"scribeview/sync-engine/models"
)

// APIError is a non-2xx backend response, surfaced to the user as a
// dismissible message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logrus.Logger
}

func New(baseURL, token string, log *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// GetFile fetches the complete file state, replacing the session's copy
// wholesale. Segments are re-sorted defensively on every fetch.
func (c *Client) GetFile(ctx context.Context, fileID string) (*models.MediaFile, error) {
	var file models.MediaFile
	if err := c.do(ctx, http.MethodGet, "/api/files/"+url.PathEscape(fileID), nil, &file); err != nil {
		return nil, err
	}
	file.SortSegments()
	return &file, nil
}

// GetTranscript fetches the file but returns only its transcript and speaker
// fields. Used after transcription completes so a refetch cannot clobber
// in-progress edits to other file fields.
func (c *Client) GetTranscript(ctx context.Context, fileID string) (*models.TranscriptData, []models.Speaker, error) {
	file, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	return &models.TranscriptData{Segments: file.Segments}, file.Speakers, nil
}

// UpdateTranscript replaces the file's transcript.
func (c *Client) UpdateTranscript(ctx context.Context, fileID string, data *models.TranscriptData) error {
	return c.do(ctx, http.MethodPut, "/api/files/"+url.PathEscape(fileID)+"/transcript", data, nil)
}

// UpdateSegment edits one segment's text.
func (c *Client) UpdateSegment(ctx context.Context, fileID, segmentID, text string) error {
	payload := map[string]string{"text": text}
	path := "/api/files/" + url.PathEscape(fileID) + "/transcript/segments/" + url.PathEscape(segmentID)
	return c.do(ctx, http.MethodPut, path, payload, nil)
}

// Reprocess asks the backend to restart the pipeline for the file.
func (c *Client) Reprocess(ctx context.Context, fileID string) error {
	return c.do(ctx, http.MethodPost, "/api/files/"+url.PathEscape(fileID)+"/reprocess", nil, nil)
}

// Summarize asks the backend to (re)generate the file's summary.
func (c *Client) Summarize(ctx context.Context, fileID string) error {
	return c.do(ctx, http.MethodPost, "/api/files/"+url.PathEscape(fileID)+"/summarize", nil, nil)
}

// GetSummary fetches the current summary text.
func (c *Client) GetSummary(ctx context.Context, fileID string) (string, error) {
	var resp struct {
		Summary string `json:"summary"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/files/"+url.PathEscape(fileID)+"/summary", nil, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

// ClearCache drops the backend's cached artifacts for the file.
func (c *Client) ClearCache(ctx context.Context, fileID string) error {
	return c.do(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(fileID)+"/cache", nil, nil)
}

// GetSpeakers lists the diarized speakers of a file.
func (c *Client) GetSpeakers(ctx context.Context, fileID string) ([]models.Speaker, error) {
	var speakers []models.Speaker
	path := "/api/speakers?file_id=" + url.QueryEscape(fileID)
	if err := c.do(ctx, http.MethodGet, path, nil, &speakers); err != nil {
		return nil, err
	}
	return speakers, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := readErrorMessage(resp.Body)
		c.log.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Warn("backend request failed")
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// readErrorMessage pulls a human message out of an error body, falling back
// to the raw text.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "no response body"
	}
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return string(data)
}
