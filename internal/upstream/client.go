// Package upstream is the REST client for the session and transcription API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/agenthands/insightflow/internal/core/normalize"
	"github.com/agenthands/insightflow/internal/core/persist"
)

const maxErrorBody = 512

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "upstream")
	return c
}

// SubmitAudio uploads audio for transcription and returns the job id.
func (c *Client) SubmitAudio(ctx context.Context, audio model.Audio) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, audio.Filename))
	if audio.ContentType != "" {
		h.Set("Content-Type", audio.ContentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("creating form part: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing form: %w", err)
	}

	body, err := c.do(ctx, "submit audio", http.MethodPost, "/transcription/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return "", err
	}
	var resp struct {
		ID              string `json:"id"`
		JobID           string `json:"job_id"`
		TranscriptionID string `json:"transcription_id"`
	}
	if err := decode(body, &resp); err != nil {
		return "", fmt.Errorf("submit audio: %w", err)
	}
	id := firstNonEmpty(resp.ID, resp.JobID, resp.TranscriptionID)
	if id == "" {
		return "", fmt.Errorf("submit audio: response carried no job id")
	}
	return id, nil
}

type statusResponse struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error"`
}

func (s statusResponse) state() model.JobState {
	return model.JobState{Status: model.ParseJobStatus(s.Status), Progress: int(s.Progress), Error: s.Error}
}

func (c *Client) TranscriptionStatus(ctx context.Context, jobID string) (model.JobState, error) {
	var resp statusResponse
	if err := c.getJSON(ctx, "transcription status", "/transcription/"+url.PathEscape(jobID)+"/status", &resp); err != nil {
		return model.JobState{}, err
	}
	return resp.state(), nil
}

// TranscriptionResult returns the final transcript. An empty transcript is
// an error.
func (c *Client) TranscriptionResult(ctx context.Context, jobID string) (string, error) {
	var resp struct {
		Transcript string `json:"transcript"`
		Text       string `json:"text"`
	}
	if err := c.getJSON(ctx, "transcription result", "/transcription/"+url.PathEscape(jobID)+"/result", &resp); err != nil {
		return "", err
	}
	t := strings.TrimSpace(firstNonEmpty(resp.Transcript, resp.Text))
	if t == "" {
		return "", fmt.Errorf("transcription result: empty transcript for job %s", jobID)
	}
	return t, nil
}

func (c *Client) CreateSession(ctx context.Context, s model.NewSession) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}
	body, err := c.do(ctx, "create session", http.MethodPost, "/sessions", bytes.NewReader(payload), "application/json")
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && mentionsTranscript(se.StatusCode, []byte(se.Body)) {
			return "", fmt.Errorf("%w: %w", model.ErrTranscriptRequired, err)
		}
		return "", err
	}
	var resp struct {
		ID        string `json:"id"`
		SessionID string `json:"session_id"`
		Camel     string `json:"sessionId"`
	}
	if err := decode(body, &resp); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return firstNonEmpty(resp.ID, resp.SessionID, resp.Camel), nil
}

// Analyze triggers analysis. The response is either the element arrays or a
// job handle.
func (c *Client) Analyze(ctx context.Context, sessionID string) (model.AnalysisOutcome, error) {
	body, err := c.do(ctx, "analyze", http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/analyze", nil, "")
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && mentionsTranscript(se.StatusCode, []byte(se.Body)) {
			return model.AnalysisOutcome{}, fmt.Errorf("%w: %w", ErrMissingTranscript, err)
		}
		return model.AnalysisOutcome{}, err
	}

	var handle struct {
		JobID string `json:"job_id"`
		Camel string `json:"jobId"`
	}
	if err := decode(body, &handle); err != nil {
		return model.AnalysisOutcome{}, fmt.Errorf("analyze: %w", err)
	}
	raw, found, err := normalize.DecodeFound(body)
	if err != nil {
		return model.AnalysisOutcome{}, fmt.Errorf("analyze: %w", err)
	}
	// Collections win over a handle, even when they are all empty.
	if id := firstNonEmpty(handle.JobID, handle.Camel); id != "" && !found {
		return model.AnalysisOutcome{JobID: id}, nil
	}
	return model.AnalysisOutcome{Elements: &raw}, nil
}

func (c *Client) AnalysisStatus(ctx context.Context, jobID string) (model.JobState, error) {
	var resp statusResponse
	if err := c.getJSON(ctx, "analysis status", "/analysis/"+url.PathEscape(jobID)+"/status", &resp); err != nil {
		return model.JobState{}, err
	}
	return resp.state(), nil
}

func (c *Client) SessionElements(ctx context.Context, sessionID string) (model.RawElements, error) {
	body, err := c.do(ctx, "session elements", http.MethodGet, "/sessions/"+url.PathEscape(sessionID)+"/elements", nil, "")
	if err != nil {
		return model.RawElements{}, err
	}
	raw, err := normalize.Decode(body)
	if err != nil {
		return model.RawElements{}, fmt.Errorf("session elements: %w", err)
	}
	return raw, nil
}

func (c *Client) PutSessionElements(ctx context.Context, sessionID string, req persist.UpdateRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling elements: %w", err)
	}
	_, err = c.do(ctx, "put session elements", http.MethodPut, "/sessions/"+url.PathEscape(sessionID)+"/elements", bytes.NewReader(payload), "application/json")
	return err
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	body, err := c.do(ctx, op, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	if err := decode(body, out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: sending request: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", op, err)
	}
	c.logger.Debug("upstream call", "op", op, "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b := strings.TrimSpace(string(respBody))
		if len(b) > maxErrorBody {
			b = b[:maxErrorBody]
		}
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: b}
	}
	return respBody, nil
}

// decode unmarshals body into out, unwrapping a {"data": ...} envelope.
func decode(body []byte, out any) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 && env.Data[0] == '{' {
		body = env.Data
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
