// Package server exposes the analysis pipeline and the element editor over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/agenthands/insightflow/internal/backend"
	"github.com/agenthands/insightflow/internal/config"
	"github.com/agenthands/insightflow/internal/core/editing"
	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/agenthands/insightflow/internal/core/persist"
	"github.com/agenthands/insightflow/internal/core/pipeline"
	"github.com/agenthands/insightflow/internal/upstream"
)

// StatusClientClosedRequest is reported when the caller went away mid-run.
const StatusClientClosedRequest = 499

type Server struct {
	Pipeline *pipeline.Orchestrator
	Registry *editing.Registry
	Saver    *persist.Adapter

	runs   *semaphore.Weighted
	logger *slog.Logger
}

func NewServer(svc backend.Service, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	runs := cfg.Server.MaxConcurrentRuns
	if runs <= 0 {
		runs = 1
	}
	return &Server{
		Pipeline: pipeline.New(svc, pipeline.Config{
			PollInterval:    cfg.Polling.Interval(),
			PollMaxAttempts: cfg.Polling.MaxAttempts,
			Titles:          pipeline.Titles{Audio: cfg.Pipeline.AudioTitle, Text: cfg.Pipeline.TextTitle},
			Language:        cfg.Pipeline.Language,
			Logger:          logger,
		}),
		Registry: editing.NewRegistry(svc, nil, logger),
		Saver:    persist.NewAdapter(svc, logger),
		runs:     semaphore.NewWeighted(int64(runs)),
		logger:   logger.With("component", "server"),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", s.Health)
	r.POST("/runs", s.CreateRun)

	sessions := r.Group("/sessions/:id")
	sessions.POST("/analyze", s.Reanalyze)
	sessions.GET("/elements", s.GetElements)
	sessions.POST("/elements/:kind", s.AddElement)
	sessions.PATCH("/elements/:kind/:index", s.UpdateElement)
	sessions.DELETE("/elements/:kind/:index", s.DeleteElement)
	sessions.GET("/changes", s.GetChanges)
	sessions.POST("/save", s.Save)
	sessions.DELETE("/edit", s.CloseEditor)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "open_sessions": s.Registry.Len()})
}

type RunRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type RunResponse struct {
	SessionID  string             `json:"session_id"`
	State      pipeline.State     `json:"state"`
	Transcript string             `json:"transcript,omitempty"`
	Progress   []string           `json:"progress"`
	Elements   model.WorkingSet   `json:"elements"`
	Skipped    int                `json:"skipped,omitempty"`
	Duplicates map[model.Kind]int `json:"duplicates,omitempty"`
}

func (s *Server) CreateRun(c *gin.Context) {
	in, err := bindInput(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": pipeline.KindValidation})
		return
	}

	ctx := c.Request.Context()
	if err := s.runs.Acquire(ctx, 1); err != nil {
		c.JSON(StatusClientClosedRequest, gin.H{"error": "request canceled while waiting for a free run slot"})
		return
	}
	defer s.runs.Release(1)

	res := s.Pipeline.Run(ctx, in, s.observe)
	s.respondRun(c, res)
}

func (s *Server) Reanalyze(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.runs.Acquire(ctx, 1); err != nil {
		c.JSON(StatusClientClosedRequest, gin.H{"error": "request canceled while waiting for a free run slot"})
		return
	}
	defer s.runs.Release(1)

	res := s.Pipeline.Reanalyze(ctx, c.Param("id"), s.observe)
	s.respondRun(c, res)
}

func (s *Server) observe(ev pipeline.Event) {
	s.logger.Debug("run progress", "state", ev.State, "progress", ev.Progress)
}

func (s *Server) respondRun(c *gin.Context, res *pipeline.Result) {
	if !res.OK() {
		writeRunError(c, res)
		return
	}
	// A fresh analysis replaces whatever was being edited.
	s.Registry.Put(res.SessionID, res.Elements)
	c.JSON(http.StatusOK, RunResponse{
		SessionID:  res.SessionID,
		State:      res.State,
		Transcript: res.Transcript,
		Progress:   res.Progress,
		Elements:   res.Elements,
		Skipped:    res.Skipped,
		Duplicates: res.Duplicates,
	})
}

func writeRunError(c *gin.Context, res *pipeline.Result) {
	e := res.Err
	status := http.StatusBadGateway
	switch e.Kind {
	case pipeline.KindValidation, pipeline.KindMissingTranscript:
		status = http.StatusUnprocessableEntity
		if errors.Is(e, pipeline.ErrAnalysisInProgress) {
			status = http.StatusConflict
		}
	case pipeline.KindUpstream:
		if errors.Is(e, model.ErrNotFound) || upstream.IsNotFound(e) {
			status = http.StatusNotFound
		}
	case pipeline.KindTimeout:
		status = http.StatusGatewayTimeout
	case pipeline.KindCanceled:
		status = StatusClientClosedRequest
	}
	c.JSON(status, gin.H{
		"error":      e.UserMessage(),
		"kind":       e.Kind,
		"state":      e.State,
		"retryable":  e.Retryable(),
		"session_id": res.SessionID,
		"progress":   res.Progress,
	})
}

// bindInput reads a run request from JSON or from a multipart form with
// "title", "text" and one or more "audio" parts. Several audio parts are
// treated as recorded chunks of one capture.
func bindInput(c *gin.Context) (pipeline.Input, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req RunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return pipeline.Input{}, errors.New("invalid request body")
		}
		return pipeline.Input{Title: req.Title, Text: req.Text}, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return pipeline.Input{}, errors.New("invalid multipart form")
	}
	in := pipeline.Input{Title: first(form.Value["title"]), Text: first(form.Value["text"])}
	files := form.File["audio"]
	switch len(files) {
	case 0:
	case 1:
		audio, err := readAudio(files[0])
		if err != nil {
			return pipeline.Input{}, err
		}
		in.File = &audio
	default:
		for _, fh := range files {
			audio, err := readAudio(fh)
			if err != nil {
				return pipeline.Input{}, err
			}
			in.Chunks = append(in.Chunks, audio.Data)
		}
	}
	return in, nil
}

func readAudio(fh *multipart.FileHeader) (model.Audio, error) {
	f, err := fh.Open()
	if err != nil {
		return model.Audio{}, errors.New("unreadable audio part")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return model.Audio{}, errors.New("unreadable audio part")
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = mimetype.Detect(data).String()
	}
	return model.Audio{Filename: fh.Filename, ContentType: ct, Data: data}, nil
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

type ElementsResponse struct {
	SessionID  string           `json:"session_id"`
	Elements   model.WorkingSet `json:"elements"`
	HasChanges bool             `json:"has_changes"`
	Editing    []string         `json:"editing"`
	Saving     bool             `json:"saving"`
	LoadError  string           `json:"load_error,omitempty"`
}

func (s *Server) elementsView(ec *editing.Context) ElementsResponse {
	resp := ElementsResponse{
		SessionID:  ec.SessionID,
		Elements:   ec.Working(),
		HasChanges: ec.HasChanges(),
		Editing:    ec.Editing(),
		Saving:     s.Saver.Saving(ec.SessionID),
	}
	if err := ec.LoadErr(); err != nil {
		resp.LoadError = err.Error()
	}
	return resp
}

func (s *Server) GetElements(c *gin.Context) {
	allowEmpty, _ := strconv.ParseBool(c.Query("allow_empty"))
	ec, err := s.Registry.Open(c.Request.Context(), c.Param("id"), allowEmpty)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.elementsView(ec))
}

// editor resolves the session's editing context and the :kind parameter.
func (s *Server) editor(c *gin.Context) (*editing.Context, model.Kind, bool) {
	kind, ok := model.ParseKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown element kind " + strconv.Quote(c.Param("kind"))})
		return nil, "", false
	}
	ec, err := s.Registry.Open(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		s.writeError(c, err)
		return nil, "", false
	}
	return ec, kind, true
}

func index(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return 0, false
	}
	return i, true
}

type AddRequest struct {
	Name string `json:"name"`
}

func (s *Server) AddElement(c *gin.Context) {
	ec, kind, ok := s.editor(c)
	if !ok {
		return
	}
	var req AddRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	i, el, err := ec.Add(kind, req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"index": i, "element": el, "has_changes": ec.HasChanges()})
}

func (s *Server) UpdateElement(c *gin.Context) {
	ec, kind, ok := s.editor(c)
	if !ok {
		return
	}
	i, ok := index(c)
	if !ok {
		return
	}
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := ec.Update(kind, i, fields); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.elementsView(ec))
}

func (s *Server) DeleteElement(c *gin.Context) {
	ec, kind, ok := s.editor(c)
	if !ok {
		return
	}
	i, ok := index(c)
	if !ok {
		return
	}
	if err := ec.Delete(kind, i); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.elementsView(ec))
}

func (s *Server) GetChanges(c *gin.Context) {
	ec, ok := s.Registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no open editor for session"})
		return
	}
	c.JSON(http.StatusOK, ec.Changes())
}

func (s *Server) Save(c *gin.Context) {
	ec, ok := s.Registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no open editor for session"})
		return
	}
	force, _ := strconv.ParseBool(c.Query("force"))
	req, err := s.Saver.Save(c.Request.Context(), ec, persist.Options{Force: force})
	switch {
	case errors.Is(err, persist.ErrNoChanges):
		c.JSON(http.StatusOK, gin.H{"saved": false, "reason": err.Error()})
	case err != nil:
		s.writeError(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"saved": true, "elements": req.Elements})
	}
}

func (s *Server) CloseEditor(c *gin.Context) {
	if !s.Registry.Close(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no open editor for session"})
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError maps editing, persistence and backend errors to a status.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, editing.ErrIndexOutOfRange), errors.Is(err, model.ErrNotFound), upstream.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, editing.ErrUnknownKind):
		status = http.StatusBadRequest
	case errors.Is(err, editing.ErrInvalidField):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, persist.ErrSaveInProgress), errors.Is(err, persist.ErrNotLoaded):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled):
		status = StatusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "session_id", c.Param("id"), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
