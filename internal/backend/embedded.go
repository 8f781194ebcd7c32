// Package backend provides the upstream operations either over HTTP or
// in-process on Memgraph, an LLM and a transcription service.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/agenthands/insightflow/internal/core/persist"
	"github.com/agenthands/insightflow/internal/driver"
)

// Transcriber is the transcription job runner.
type Transcriber interface {
	Submit(ctx context.Context, audio model.Audio) (string, error)
	Status(ctx context.Context, id string) (model.JobState, error)
	Result(ctx context.Context, id string) (string, error)
}

// ElementExtractor runs analysis over a transcript.
type ElementExtractor interface {
	ExtractElements(ctx context.Context, transcript string) (model.RawElements, error)
}

// Embedded serves every upstream operation in-process. Sessions and their
// elements are stored as (:Session)-[:HAS_ELEMENT]->(:Element) in Memgraph.
type Embedded struct {
	Driver      driver.GraphDriver
	Transcriber Transcriber
	Extractor   ElementExtractor
	Language    string

	UUIDGenerator func() string
	Clock         func() time.Time
	logger        *slog.Logger
}

func NewEmbedded(d driver.GraphDriver, t Transcriber, x ElementExtractor, logger *slog.Logger) *Embedded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedded{
		Driver:        d,
		Transcriber:   t,
		Extractor:     x,
		UUIDGenerator: uuid.NewString,
		Clock:         func() time.Time { return time.Now().UTC() },
		logger:        logger.With("component", "embedded"),
	}
}

func (e *Embedded) SubmitAudio(ctx context.Context, audio model.Audio) (string, error) {
	return e.Transcriber.Submit(ctx, audio)
}

func (e *Embedded) TranscriptionStatus(ctx context.Context, jobID string) (model.JobState, error) {
	return e.Transcriber.Status(ctx, jobID)
}

func (e *Embedded) TranscriptionResult(ctx context.Context, jobID string) (string, error) {
	return e.Transcriber.Result(ctx, jobID)
}

func (e *Embedded) CreateSession(ctx context.Context, s model.NewSession) (string, error) {
	if strings.TrimSpace(s.Transcript) == "" {
		return "", fmt.Errorf("create session: %w", model.ErrTranscriptRequired)
	}
	created := s.Date
	if created.IsZero() {
		created = e.Clock()
	}
	lang := s.Language
	if lang == "" {
		lang = e.Language
	}
	id := e.UUIDGenerator()
	params := map[string]any{
		"uuid":       id,
		"title":      s.Title,
		"transcript": s.Transcript,
		"language":   lang,
		"created_at": created.UTC().Format(time.RFC3339Nano),
	}
	if _, err := e.Driver.ExecuteQuery(ctx, driver.SaveSessionQuery, params); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	e.logger.Info("session created", "session_id", id, "title", s.Title)
	return id, nil
}

// Session loads one session.
func (e *Embedded) Session(ctx context.Context, sessionID string) (model.Session, error) {
	res, err := e.Driver.ExecuteQuery(ctx, driver.GetSessionQuery, map[string]any{"uuid": sessionID})
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	if len(res.Records) == 0 {
		return model.Session{}, fmt.Errorf("session %s: %w", sessionID, model.ErrNotFound)
	}
	rec := res.Records[0]
	s := model.Session{
		ID:         stringValue(rec, "uuid"),
		Title:      stringValue(rec, "title"),
		Transcript: stringValue(rec, "transcript"),
	}
	if t, err := time.Parse(time.RFC3339Nano, stringValue(rec, "created_at")); err == nil {
		s.CreatedAt = t
	}
	return s, nil
}

// Analyze runs the extractor synchronously and stores its result as the
// session's elements.
func (e *Embedded) Analyze(ctx context.Context, sessionID string) (model.AnalysisOutcome, error) {
	s, err := e.Session(ctx, sessionID)
	if err != nil {
		return model.AnalysisOutcome{}, err
	}
	if strings.TrimSpace(s.Transcript) == "" {
		return model.AnalysisOutcome{}, fmt.Errorf("analyze session %s: %w", sessionID, model.ErrMissingTranscript)
	}

	raw, err := e.Extractor.ExtractElements(ctx, s.Transcript)
	if err != nil {
		return model.AnalysisOutcome{}, fmt.Errorf("analyze session %s: %w", sessionID, err)
	}
	if err := e.replaceElements(ctx, sessionID, raw); err != nil {
		return model.AnalysisOutcome{}, err
	}
	e.logger.Info("analysis stored", "session_id", sessionID, "records", raw.Count())
	return model.AnalysisOutcome{Elements: &raw}, nil
}

// AnalysisStatus exists for interface parity; embedded analysis never
// returns a job handle.
func (e *Embedded) AnalysisStatus(ctx context.Context, jobID string) (model.JobState, error) {
	return model.JobState{}, fmt.Errorf("analysis job %s: %w", jobID, model.ErrNotFound)
}

func (e *Embedded) SessionElements(ctx context.Context, sessionID string) (model.RawElements, error) {
	res, err := e.Driver.ExecuteQuery(ctx, driver.GetSessionElementsQuery, map[string]any{"session_uuid": sessionID})
	if err != nil {
		return model.RawElements{}, fmt.Errorf("failed to load elements: %w", err)
	}
	if len(res.Records) == 0 {
		// Distinguish "no elements yet" from "no such session".
		if _, err := e.Session(ctx, sessionID); err != nil {
			return model.RawElements{}, err
		}
	}

	var raw model.RawElements
	for _, rec := range res.Records {
		kind, ok := model.ParseKind(stringValue(rec, "kind"))
		if !ok {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(stringValue(rec, "data")), &record); err != nil {
			e.logger.Warn("skipping unreadable element", "session_id", sessionID, "error", err)
			continue
		}
		raw.Set(kind, append(raw.Records(kind), record))
	}
	return raw, nil
}

func (e *Embedded) PutSessionElements(ctx context.Context, sessionID string, req persist.UpdateRequest) error {
	if _, err := e.Session(ctx, sessionID); err != nil {
		return err
	}
	return e.replaceElements(ctx, sessionID, req.Elements.Raw())
}

// replaceElements swaps the stored elements of a session wholesale.
func (e *Embedded) replaceElements(ctx context.Context, sessionID string, raw model.RawElements) error {
	elements := make([]any, 0, raw.Count())
	for _, kind := range model.Kinds {
		for i, record := range raw.Records(kind) {
			data, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("encode %s[%d]: %w", kind, i, err)
			}
			id := e.UUIDGenerator()
			if m, ok := record.(map[string]any); ok {
				if s, ok := m["id"].(string); ok && s != "" {
					id = s
				}
			}
			elements = append(elements, map[string]any{
				"uuid":     id,
				"kind":     string(kind),
				"position": int64(i),
				"data":     string(data),
			})
		}
	}

	if _, err := e.Driver.ExecuteQuery(ctx, driver.DeleteSessionElementsQuery, map[string]any{"session_uuid": sessionID}); err != nil {
		return fmt.Errorf("failed to clear elements: %w", err)
	}
	if len(elements) == 0 {
		return nil
	}
	params := map[string]any{
		"session_uuid": sessionID,
		"elements":     elements,
		"created_at":   e.Clock().Format(time.RFC3339Nano),
	}
	if _, err := e.Driver.ExecuteQuery(ctx, driver.SaveElementsQuery, params); err != nil {
		return fmt.Errorf("failed to save elements: %w", err)
	}
	return nil
}

func stringValue(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
