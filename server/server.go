package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auto_report_author/authoring"
	"auto_report_author/document"
	"auto_report_author/generator"
	"auto_report_author/publisher"
)

// DefaultPhaseTimeout bounds one phase request. Drafting a long outline takes many calls.
const DefaultPhaseTimeout = 15 * time.Minute

// Server exposes the authoring workflow of one project over HTTP. Phases mutate
// the same files, so only one runs at a time; a second request gets 409.
type Server struct {
	project *authoring.Project
	pub     *publisher.Publisher
	logger  *zap.Logger
	timeout time.Duration

	busy sync.Mutex
}

func New(project *authoring.Project, pub *publisher.Publisher, logger *zap.Logger, timeout time.Duration) (*Server, error) {
	if project == nil || project.Session == nil || project.Store == nil {
		return nil, errors.New("project with session and store required")
	}
	if pub == nil {
		pub = publisher.New(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultPhaseTimeout
	}
	return &Server{project: project, pub: pub, logger: logger, timeout: timeout}, nil
}

func (s *Server) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/report", s.handleReport)

	api := router.Group("/api")
	api.GET("/document", s.handleDocument)
	api.POST("/draft", s.handleDraft)
	api.POST("/review", s.handleReview)
	api.POST("/revise", s.handleRevise)
	api.POST("/amend", s.handleAmend)
	return router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// --- Handlers ---

type sectionView struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Body   string `json:"body,omitempty"`
}

type documentView struct {
	Title    string        `json:"title"`
	Sections []sectionView `json:"sections"`
}

type phaseResp struct {
	Document *documentView            `json:"document,omitempty"`
	Findings []document.ReviewFinding `json:"findings,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

type reviseReq struct {
	All bool `json:"all"`
}

type amendReq struct {
	SectionID   string `json:"section_id" binding:"required"`
	Instruction string `json:"instruction" binding:"required"`
}

func (s *Server) handleDocument(c *gin.Context) {
	doc, err := s.project.Load()
	if err != nil {
		s.fail(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(doc))
}

func (s *Server) handleReport(c *gin.Context) {
	doc, err := s.project.Load()
	if err != nil {
		s.fail(c, nil, err)
		return
	}
	html, err := s.pub.RenderHTML(c.Request.Context(), doc, publisher.Options{IncludePlanned: true})
	if err != nil {
		s.fail(c, nil, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (s *Server) handleDraft(c *gin.Context) {
	s.runPhase(c, func(ctx context.Context) (*document.Document, []document.ReviewFinding, error) {
		doc, err := s.project.RunDraft(ctx)
		return doc, nil, err
	})
}

func (s *Server) handleReview(c *gin.Context) {
	s.runPhase(c, s.project.RunReview)
}

func (s *Server) handleRevise(c *gin.Context) {
	var req reviseReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, phaseResp{Error: err.Error()})
			return
		}
	}
	s.runPhase(c, func(ctx context.Context) (*document.Document, []document.ReviewFinding, error) {
		doc, err := s.project.RunRevise(ctx, authoring.ReviseOptions{All: req.All})
		return doc, nil, err
	})
}

func (s *Server) handleAmend(c *gin.Context) {
	var req amendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, phaseResp{Error: err.Error()})
		return
	}
	s.runPhase(c, func(ctx context.Context) (*document.Document, []document.ReviewFinding, error) {
		doc, err := s.project.RunAmend(ctx, req.SectionID, req.Instruction)
		return doc, nil, err
	})
}

type phaseFunc func(ctx context.Context) (*document.Document, []document.ReviewFinding, error)

func (s *Server) runPhase(c *gin.Context, run phaseFunc) {
	if !s.busy.TryLock() {
		c.JSON(http.StatusConflict, phaseResp{Error: "another phase is running"})
		return
	}
	defer s.busy.Unlock()

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()
	doc, findings, err := run(ctx)
	if err != nil {
		s.fail(c, doc, err)
		return
	}
	c.JSON(http.StatusOK, phaseResp{Document: viewOf(doc), Findings: findings})
}

func (s *Server) fail(c *gin.Context, doc *document.Document, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, phaseResp{Document: viewOf(doc), Error: err.Error()})
}

// --- Helpers ---

func statusFor(err error) int {
	switch {
	case errors.Is(err, document.ErrSectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, generator.ErrBudgetExceeded),
		errors.Is(err, authoring.ErrNothingToReview),
		errors.Is(err, authoring.ErrDraftIncomplete),
		errors.Is(err, authoring.ErrOutlineMismatch),
		errors.Is(err, authoring.ErrInstructionChanged),
		errors.Is(err, authoring.ErrNoDocument),
		errors.Is(err, document.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, generator.ErrGenerationUnavailable),
		errors.Is(err, generator.ErrGenerationRejected),
		errors.Is(err, generator.ErrMalformedOutput):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func viewOf(doc *document.Document) *documentView {
	if doc == nil {
		return nil
	}
	v := &documentView{Title: doc.Title, Sections: make([]sectionView, 0, len(doc.Sections))}
	for _, sec := range doc.Sections {
		v.Sections = append(v.Sections, sectionView{
			ID:     sec.ID,
			Title:  sec.Title,
			Status: string(sec.Status),
			Body:   sec.Body,
		})
	}
	return v
}
