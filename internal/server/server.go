package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"afltips/automation/internal/automation"
	"afltips/automation/internal/cache"
	"afltips/automation/internal/ingest"
	"afltips/automation/internal/models"
	"afltips/automation/internal/repository"
	"afltips/automation/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// SchedulerControl is the scheduler surface the API exposes
type SchedulerControl interface {
	Start()
	Stop()
	RunJobNow(ctx context.Context, id string) error
	Status() scheduler.Status
}

// FullUpdater runs the composite weekly update
type FullUpdater interface {
	FullWeeklyUpdate(ctx context.Context) *automation.Result
}

// Ingester exposes the scraping pipeline with explicit windows
type Ingester interface {
	ScrapeUpcomingWindow(ctx context.Context, days int) (*ingest.Summary, error)
	ScrapeResultsWindow(ctx context.Context, days int) (*ingest.Summary, error)
}

// SnapshotReader loads accuracy snapshots from the database
type SnapshotReader interface {
	GetByPeriod(ctx context.Context, period string) (*models.AccuracySnapshot, error)
}

// Config holds the server's tunables
type Config struct {
	Port                string
	UpcomingWindowDays  int
	ResultsLookbackDays int
}

// Server is the operator HTTP surface
type Server struct {
	cfg       Config
	scheduler SchedulerControl
	facade    FullUpdater
	ingester  Ingester
	snapshots SnapshotReader
	cache     *cache.Cache
	db        *repository.Database

	httpServer *http.Server
}

// New creates the operator API server. cache may be nil.
func New(cfg Config, sched SchedulerControl, facade FullUpdater, ingester Ingester, snapshots SnapshotReader, c *cache.Cache, db *repository.Database) *Server {
	return &Server{
		cfg:       cfg,
		scheduler: sched,
		facade:    facade,
		ingester:  ingester,
		snapshots: snapshots,
		cache:     c,
		db:        db,
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auto := router.Group("/automation")
	{
		auto.GET("/scheduler/status", s.handleSchedulerStatus)
		auto.POST("/scheduler/start", s.handleSchedulerStart)
		auto.POST("/scheduler/stop", s.handleSchedulerStop)
		auto.POST("/scheduler/run-job/:id", s.handleRunJob)
		auto.POST("/full-weekly-update", s.handleFullWeeklyUpdate)
		auto.GET("/scraping/upcoming", s.handleScrapeUpcoming)
		auto.GET("/scraping/results", s.handleScrapeResults)
		auto.GET("/accuracy/:period", s.handleAccuracy)
	}

	return router
}

// Start runs the HTTP server until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	log.Info().Str("port", s.cfg.Port).Msg("HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.db.Health(c.Request.Context()); err != nil {
		respondError(c, http.StatusServiceUnavailable, fmt.Errorf("database unavailable: %w", err))
		return
	}
	respondOK(c, gin.H{"status": "healthy", "pool": s.db.PoolStats()})
}

func (s *Server) handleSchedulerStatus(c *gin.Context) {
	respondStatus(c, s.scheduler.Status())
}

func (s *Server) handleSchedulerStart(c *gin.Context) {
	s.scheduler.Start()
	respondStatus(c, s.scheduler.Status())
}

func (s *Server) handleSchedulerStop(c *gin.Context) {
	s.scheduler.Stop()
	respondStatus(c, s.scheduler.Status())
}

// respondStatus flattens the scheduler status so scheduler_running,
// total_jobs and jobs sit at the top level of the payload
func respondStatus(c *gin.Context, st scheduler.Status) {
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"scheduler_running": st.SchedulerRunning,
		"total_jobs":        st.TotalJobs,
		"jobs":              st.Jobs,
	})
}

func (s *Server) handleRunJob(c *gin.Context) {
	id := c.Param("id")
	err := s.scheduler.RunJobNow(c.Request.Context(), id)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		respondError(c, http.StatusNotFound, err)
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		respondError(c, http.StatusConflict, err)
	case err != nil:
		respondError(c, http.StatusInternalServerError, err)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": fmt.Sprintf("Job %s triggered", id),
			"job_id":  id,
		})
	}
}

func (s *Server) handleFullWeeklyUpdate(c *gin.Context) {
	result := s.facade.FullWeeklyUpdate(c.Request.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"success":         result.Success,
		"steps_completed": result.StepsCompleted,
		"errors":          result.Errors,
	})
}

func (s *Server) handleScrapeUpcoming(c *gin.Context) {
	days, err := s.windowParam(c, s.cfg.UpcomingWindowDays)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	summary, err := s.ingester.ScrapeUpcomingWindow(c.Request.Context(), days)
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}
	respondScrape(c, "upcoming games", summary)
}

func (s *Server) handleScrapeResults(c *gin.Context) {
	days, err := s.windowParam(c, s.cfg.ResultsLookbackDays)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	summary, err := s.ingester.ScrapeResultsWindow(c.Request.Context(), days)
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}
	respondScrape(c, "results", summary)
}

// respondScrape pairs the scrape summary with a human-readable message
func respondScrape(c *gin.Context, what string, summary *ingest.Summary) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Scraped %s: %d saved, %d updated, %d failed",
			what, summary.Inserted, summary.Updated, len(summary.Failed)),
		"data": summary,
	})
}

// windowParam resolves the scrape window from days or weeks query params
func (s *Server) windowParam(c *gin.Context, fallback int) (int, error) {
	var params struct {
		Days  int `form:"days"`
		Weeks int `form:"weeks"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		return 0, fmt.Errorf("invalid window parameters: %w", err)
	}
	switch {
	case params.Days < 0 || params.Weeks < 0:
		return 0, fmt.Errorf("window must be positive")
	case params.Days > 0:
		return params.Days, nil
	case params.Weeks > 0:
		return params.Weeks * 7, nil
	default:
		return fallback, nil
	}
}

func (s *Server) handleAccuracy(c *gin.Context) {
	period := c.Param("period")
	switch period {
	case models.PeriodDaily, models.PeriodWeekly, models.PeriodAllTime:
	default:
		respondError(c, http.StatusBadRequest, fmt.Errorf("unknown period %q", period))
		return
	}

	ctx := c.Request.Context()
	if s.cache != nil {
		if snap := s.cache.GetSnapshot(ctx, period); snap != nil {
			respondOK(c, snap)
			return
		}
	}

	snap, err := s.snapshots.GetByPeriod(ctx, period)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if snap == nil {
		respondError(c, http.StatusNotFound, fmt.Errorf("no %s snapshot computed yet", period))
		return
	}

	if s.cache != nil {
		s.cache.SetSnapshot(ctx, snap)
	}
	respondOK(c, snap)
}
