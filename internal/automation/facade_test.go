package automation

import (
	"context"
	"errors"
	"testing"

	"afltips/automation/internal/accuracy"
	"afltips/automation/internal/ingest"
	"afltips/automation/internal/tips"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	upcomingErr error
	resultsErr  error
	calls       []string
}

func (f *fakeIngester) ScrapeUpcoming(ctx context.Context) (*ingest.Summary, error) {
	f.calls = append(f.calls, StepScrapeUpcoming)
	if f.upcomingErr != nil {
		return nil, f.upcomingErr
	}
	return &ingest.Summary{}, nil
}

func (f *fakeIngester) ScrapeResults(ctx context.Context) (*ingest.Summary, error) {
	f.calls = append(f.calls, StepScrapeResults)
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	return &ingest.Summary{}, nil
}

func (f *fakeIngester) ScrapeUpcomingWindow(ctx context.Context, days int) (*ingest.Summary, error) {
	return f.ScrapeUpcoming(ctx)
}

func (f *fakeIngester) ScrapeResultsWindow(ctx context.Context, days int) (*ingest.Summary, error) {
	return f.ScrapeResults(ctx)
}

type fakeTips struct {
	err   error
	calls *[]string
}

func (f *fakeTips) GenerateWeeklyTips(ctx context.Context) (*tips.Summary, error) {
	*f.calls = append(*f.calls, StepGenerateTips)
	if f.err != nil {
		return nil, f.err
	}
	return &tips.Summary{}, nil
}

type fakeAccuracy struct {
	err   error
	calls *[]string
}

func (f *fakeAccuracy) UpdateAccuracy(ctx context.Context) (*accuracy.Summary, error) {
	*f.calls = append(*f.calls, StepUpdateAccuracy)
	if f.err != nil {
		return nil, f.err
	}
	return &accuracy.Summary{}, nil
}

func TestFullWeeklyUpdate_AllStepsSucceed(t *testing.T) {
	ing := &fakeIngester{}
	tipGen := &fakeTips{calls: &ing.calls}
	tracker := &fakeAccuracy{calls: &ing.calls}

	result := NewFacade(ing, tipGen, tracker).FullWeeklyUpdate(context.Background())
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{
		StepScrapeUpcoming,
		StepScrapeResults,
		StepUpdateAccuracy,
		StepGenerateTips,
	}, result.StepsCompleted)
	assert.Equal(t, result.StepsCompleted, ing.calls, "steps run in a fixed order")
}

func TestFullWeeklyUpdate_ContinuesPastFailedStep(t *testing.T) {
	ing := &fakeIngester{resultsErr: errors.New("source down")}
	tipGen := &fakeTips{calls: &ing.calls}
	tracker := &fakeAccuracy{calls: &ing.calls}

	result := NewFacade(ing, tipGen, tracker).FullWeeklyUpdate(context.Background())
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, StepScrapeResults, result.Errors[0].Step)
	assert.Equal(t, []string{
		StepScrapeUpcoming,
		StepUpdateAccuracy,
		StepGenerateTips,
	}, result.StepsCompleted, "later steps still run after a failure")
}

func TestFullWeeklyUpdate_AllStepsFail(t *testing.T) {
	ing := &fakeIngester{
		upcomingErr: errors.New("down"),
		resultsErr:  errors.New("down"),
	}
	tipGen := &fakeTips{err: errors.New("down"), calls: &ing.calls}
	tracker := &fakeAccuracy{err: errors.New("down"), calls: &ing.calls}

	result := NewFacade(ing, tipGen, tracker).FullWeeklyUpdate(context.Background())
	assert.False(t, result.Success)
	assert.Empty(t, result.StepsCompleted)
	assert.Len(t, result.Errors, 4)
}

func TestJobsRun_UnknownID(t *testing.T) {
	jobs := &Jobs{}
	err := jobs.Run(context.Background(), "mystery_job")
	assert.Error(t, err)
}
