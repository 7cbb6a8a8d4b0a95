package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"afltips/automation/internal/automation"
	"afltips/automation/internal/ingest"
	"afltips/automation/internal/models"
	"afltips/automation/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeScheduler struct {
	running   bool
	runJobErr error
	ranJobs   []string
}

func (f *fakeScheduler) Start() { f.running = true }
func (f *fakeScheduler) Stop()  { f.running = false }

func (f *fakeScheduler) RunJobNow(ctx context.Context, id string) error {
	if f.runJobErr != nil {
		return f.runJobErr
	}
	f.ranJobs = append(f.ranJobs, id)
	return nil
}

func (f *fakeScheduler) Status() scheduler.Status {
	return scheduler.Status{
		SchedulerRunning: f.running,
		TotalJobs:        1,
		Jobs: []models.JobInfo{
			{ID: "scrape_upcoming", Name: "Scrape upcoming fixtures", Trigger: "cron(0 6 * * 2)", LastStatus: models.JobIdle},
		},
	}
}

type fakeFacade struct {
	result *automation.Result
}

func (f *fakeFacade) FullWeeklyUpdate(ctx context.Context) *automation.Result {
	return f.result
}

type fakeIngester struct {
	lastDays int
	summary  *ingest.Summary
	err      error
}

func (f *fakeIngester) ScrapeUpcomingWindow(ctx context.Context, days int) (*ingest.Summary, error) {
	f.lastDays = days
	return f.summary, f.err
}

func (f *fakeIngester) ScrapeResultsWindow(ctx context.Context, days int) (*ingest.Summary, error) {
	f.lastDays = days
	return f.summary, f.err
}

type fakeSnapshots struct {
	snap *models.AccuracySnapshot
	err  error
}

func (f *fakeSnapshots) GetByPeriod(ctx context.Context, period string) (*models.AccuracySnapshot, error) {
	return f.snap, f.err
}

func newTestServer(sched *fakeScheduler, facade *fakeFacade, ing *fakeIngester, snaps *fakeSnapshots) *Server {
	cfg := Config{Port: "8080", UpcomingWindowDays: 14, ResultsLookbackDays: 7}
	return New(cfg, sched, facade, ing, snaps, nil, nil)
}

func doRequest(t *testing.T, srv *Server, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	srv.Router().ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestSchedulerStatusEndpoint(t *testing.T) {
	sched := &fakeScheduler{running: true}
	srv := newTestServer(sched, &fakeFacade{}, &fakeIngester{}, &fakeSnapshots{})

	w, body := doRequest(t, srv, http.MethodGet, "/automation/scheduler/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["scheduler_running"])
	assert.Equal(t, float64(1), body["total_jobs"])

	jobs := body["jobs"].([]any)
	require.Len(t, jobs, 1)
	assert.Equal(t, "scrape_upcoming", jobs[0].(map[string]any)["id"])
}

func TestSchedulerStatusEndpoint_Stopped(t *testing.T) {
	srv := newTestServer(&fakeScheduler{}, &fakeFacade{}, &fakeIngester{}, &fakeSnapshots{})

	w, body := doRequest(t, srv, http.MethodGet, "/automation/scheduler/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["scheduler_running"])
}

func TestSchedulerStartStopEndpoints(t *testing.T) {
	sched := &fakeScheduler{}
	srv := newTestServer(sched, &fakeFacade{}, &fakeIngester{}, &fakeSnapshots{})

	w, body := doRequest(t, srv, http.MethodPost, "/automation/scheduler/start")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, sched.running)
	assert.Equal(t, true, body["scheduler_running"])

	w, body = doRequest(t, srv, http.MethodPost, "/automation/scheduler/stop")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, sched.running)
	assert.Equal(t, false, body["scheduler_running"])
}

func TestRunJobEndpoint(t *testing.T) {
	sched := &fakeScheduler{}
	srv := newTestServer(sched, &fakeFacade{}, &fakeIngester{}, &fakeSnapshots{})

	w, body := doRequest(t, srv, http.MethodPost, "/automation/scheduler/run-job/scrape_upcoming")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Job scrape_upcoming triggered", body["message"])
	assert.Equal(t, []string{"scrape_upcoming"}, sched.ranJobs)
}

func TestRunJobEndpoint_NotFound(t *testing.T) {
	sched := &fakeScheduler{runJobErr: scheduler.ErrJobNotFound}
	srv := newTestServer(sched, &fakeFacade{}, &fakeIngester{}, &fakeSnapshots{})

	w, body := doRequest(t, srv, http.MethodPost, "/automation/scheduler/run-job/mystery")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestRunJobEndpoint_AlreadyRunning(t *testing.T) {
	sched := &fakeScheduler{runJobErr: scheduler.ErrAlreadyRunning}
	srv := newTestServer(sched, &fakeFacade{}, &fakeIngester{}, &fakeSnapshots{})

	w, body := doRequest(t, srv, http.MethodPost, "/automation/scheduler/run-job/scrape_upcoming")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestFullWeeklyUpdateEndpoint(t *testing.T) {
	facade := &fakeFacade{result: &automation.Result{
		Success:        true,
		StepsCompleted: []string{"scrape_upcoming", "scrape_results", "update_prediction_accuracy", "generate_weekly_tips"},
	}}
	srv := newTestServer(&fakeScheduler{}, facade, &fakeIngester{}, &fakeSnapshots{})

	w, body := doRequest(t, srv, http.MethodPost, "/automation/full-weekly-update")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["steps_completed"], 4)
}

func TestFullWeeklyUpdateEndpoint_PartialFailure(t *testing.T) {
	facade := &fakeFacade{result: &automation.Result{
		Success:        false,
		StepsCompleted: []string{"scrape_upcoming"},
		Errors:         []automation.StepError{{Step: "scrape_results", Error: "source down"}},
	}}
	srv := newTestServer(&fakeScheduler{}, facade, &fakeIngester{}, &fakeSnapshots{})

	w, body := doRequest(t, srv, http.MethodPost, "/automation/full-weekly-update")
	assert.Equal(t, http.StatusMultiStatus, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestScrapingEndpoints_WindowParams(t *testing.T) {
	ing := &fakeIngester{summary: &ingest.Summary{Inserted: 3, Updated: 1}}
	srv := newTestServer(&fakeScheduler{}, &fakeFacade{}, ing, &fakeSnapshots{})

	w, body := doRequest(t, srv, http.MethodGet, "/automation/scraping/upcoming")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 14, ing.lastDays, "defaults to the configured window")
	assert.Equal(t, "Scraped upcoming games: 3 saved, 1 updated, 0 failed", body["message"])

	w, _ = doRequest(t, srv, http.MethodGet, "/automation/scraping/upcoming?days=3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, ing.lastDays)

	w, _ = doRequest(t, srv, http.MethodGet, "/automation/scraping/results?weeks=2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 14, ing.lastDays, "weeks are converted to days")

	w, body = doRequest(t, srv, http.MethodGet, "/automation/scraping/results?days=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestScrapingEndpoint_UpstreamFailure(t *testing.T) {
	ing := &fakeIngester{err: errors.New("fixture source unreachable")}
	srv := newTestServer(&fakeScheduler{}, &fakeFacade{}, ing, &fakeSnapshots{})

	w, body := doRequest(t, srv, http.MethodGet, "/automation/scraping/upcoming")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestAccuracyEndpoint(t *testing.T) {
	snaps := &fakeSnapshots{snap: &models.AccuracySnapshot{
		Period:      models.PeriodWeekly,
		ComputedAt:  time.Now(),
		Total:       3,
		Correct:     2,
		AccuracyPct: 66.7,
	}}
	srv := newTestServer(&fakeScheduler{}, &fakeFacade{}, &fakeIngester{}, snaps)

	w, body := doRequest(t, srv, http.MethodGet, "/automation/accuracy/weekly")
	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, 66.7, data["accuracy_pct"])
}

func TestAccuracyEndpoint_UnknownPeriod(t *testing.T) {
	srv := newTestServer(&fakeScheduler{}, &fakeFacade{}, &fakeIngester{}, &fakeSnapshots{})

	w, _ := doRequest(t, srv, http.MethodGet, "/automation/accuracy/fortnightly")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccuracyEndpoint_NoSnapshotYet(t *testing.T) {
	srv := newTestServer(&fakeScheduler{}, &fakeFacade{}, &fakeIngester{}, &fakeSnapshots{})

	w, _ := doRequest(t, srv, http.MethodGet, "/automation/accuracy/daily")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
