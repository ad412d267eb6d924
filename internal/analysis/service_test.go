package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/demandradar/demand-radar/internal/filter"
	"github.com/demandradar/demand-radar/internal/models"
	"github.com/demandradar/demand-radar/internal/ratelimit"
	"github.com/demandradar/demand-radar/internal/status"
	"github.com/demandradar/demand-radar/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	posts      map[string][]models.ContentItem
	comments   map[string][]models.CommentItem
	postErrs   map[string]error
	commentErr error
}

func (f *fakeFetcher) FetchPosts(_ context.Context, subreddit string, _ int) ([]models.ContentItem, error) {
	if err := f.postErrs[subreddit]; err != nil {
		return nil, err
	}
	return f.posts[subreddit], nil
}

func (f *fakeFetcher) FetchComments(_ context.Context, postID string, _ int) ([]models.CommentItem, error) {
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	return f.comments[postID], nil
}

type fakeClassifier struct {
	mentionAll bool
	panics     bool
}

func (f *fakeClassifier) ClassifyBatch(_ context.Context, inputs []models.ClassificationInput) []models.ClassificationResult {
	if f.panics {
		panic("classifier exploded")
	}
	results := make([]models.ClassificationResult, 0, len(inputs))
	for _, input := range inputs {
		results = append(results, models.ClassificationResult{
			PostID:            input.PostID,
			Mentioned:         f.mentionAll,
			MentionedKeywords: input.Keywords,
			Confidence:        0.9,
		})
	}
	return results
}

func (f *fakeClassifier) ClassifyCommentsBatch(_ context.Context, inputs []models.CommentsClassificationInput) []models.CommentsClassificationResult {
	results := make([]models.CommentsClassificationResult, 0, len(inputs))
	for _, input := range inputs {
		results = append(results, models.CommentsClassificationResult{
			PostID:       input.PostID,
			Mentioned:    f.mentionAll,
			CommentCount: len(input.Comments),
		})
	}
	return results
}

type fakeBudget struct {
	err error
}

func (f *fakeBudget) CheckBudget(context.Context) error { return f.err }

type fakeAnalytics struct {
	recorded bool
}

func (f *fakeAnalytics) RecordContentRequest(string, []string, []string, int, int) {
	f.recorded = true
}

func newTestService(fetcher *fakeFetcher, classifier *fakeClassifier, budget *fakeBudget) (*Service, status.Tracker, *fakeAnalytics) {
	tracker := status.NewService(storage.NewMemoryStorage())
	analytics := &fakeAnalytics{}
	service := NewService(fetcher, filter.NewService(), classifier, tracker, budget, analytics, 100, 100)
	return service, tracker, analytics
}

func waitForTerminal(t *testing.T, tracker status.Tracker, requestID string) *models.RequestStatus {
	t.Helper()

	var final *models.RequestStatus
	require.Eventually(t, func() bool {
		record, err := tracker.GetRequestStatus(requestID)
		if err != nil || record == nil {
			return false
		}
		if record.Status == models.StatusCompleted || record.Status == models.StatusFailed {
			final = record
			return true
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	require.NotNil(t, final)
	return final
}

func TestAccept_Validation(t *testing.T) {
	service, _, _ := newTestService(&fakeFetcher{}, &fakeClassifier{}, &fakeBudget{})

	tests := []struct {
		name string
		req  Request
	}{
		{"no subreddits", Request{Subreddits: nil, Keywords: []string{"SaaS"}}},
		{"too many subreddits", Request{Subreddits: []string{"a", "b", "c", "d"}, Keywords: []string{"SaaS"}}},
		{"no keywords", Request{Subreddits: []string{"startups"}}},
		{"too many keywords", Request{Subreddits: []string{"startups"}, Keywords: []string{"a", "b", "c", "d", "e", "f"}}},
		{"empty subreddit entry", Request{Subreddits: []string{"  "}, Keywords: []string{"SaaS"}}},
		{"empty keyword entry", Request{Subreddits: []string{"startups"}, Keywords: []string{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Accept(context.Background(), tt.req)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestAccept_ValidBoundsPass(t *testing.T) {
	service, tracker, _ := newTestService(&fakeFetcher{}, &fakeClassifier{}, &fakeBudget{})

	id, err := service.Accept(context.Background(), Request{
		Subreddits: []string{"a", "b", "c"},
		Keywords:   []string{"k1", "k2", "k3", "k4", "k5"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	waitForTerminal(t, tracker, id)
}

func TestAccept_QuotaExceeded(t *testing.T) {
	service, _, _ := newTestService(&fakeFetcher{}, &fakeClassifier{}, &fakeBudget{err: ratelimit.ErrQuotaExceeded})

	_, err := service.Accept(context.Background(), Request{
		Subreddits: []string{"startups"},
		Keywords:   []string{"SaaS"},
	})
	assert.ErrorIs(t, err, ratelimit.ErrQuotaExceeded)
}

func TestRun_EndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{
		posts: map[string][]models.ContentItem{
			"startups": {
				{ID: "p1", Author: "AutoModerator", Title: "SaaS weekly thread", Subreddit: "startups"},
				{ID: "p2", Author: "founder", Title: "Questions about SaaS pricing", Body: "thinking of buying", Subreddit: "startups"},
				{ID: "p3", Author: "randomer", Title: "My cat photos", Subreddit: "startups"},
			},
		},
		comments: map[string][]models.CommentItem{
			"p2": {
				{ID: "c1", PostID: "p2", Body: "I'd pay for that"},
			},
		},
	}
	classifier := &fakeClassifier{mentionAll: true}
	service, tracker, analytics := newTestService(fetcher, classifier, &fakeBudget{})

	id, err := service.Accept(context.Background(), Request{
		Subreddits: []string{"startups"},
		Keywords:   []string{"SaaS"},
	})
	require.NoError(t, err)

	final := waitForTerminal(t, tracker, id)
	require.Equal(t, models.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)

	report := final.Report
	require.NotNil(t, report)
	assert.Equal(t, 3, report.TotalPosts)
	assert.Equal(t, 1, report.FilteredPosts)
	require.Len(t, report.PostResults, 1)
	assert.Equal(t, "p2", report.PostResults[0].PostID)
	assert.Equal(t, 1, report.HighIntentPosts)
	require.Len(t, report.CommentResults, 1)
	assert.Equal(t, 1, report.CommentResults[0].CommentCount)
	assert.Equal(t, 1, report.HighIntentComments)

	assert.Eventually(t, func() bool { return analytics.recorded }, time.Second, 5*time.Millisecond)

	metrics := service.GetMetrics()
	assert.Equal(t, 1, metrics.Accepted)
	assert.Equal(t, 1, metrics.Completed)
}

func TestRun_PerTargetFailureIsSkipped(t *testing.T) {
	fetcher := &fakeFetcher{
		posts: map[string][]models.ContentItem{
			"startups": {
				{ID: "p1", Author: "founder", Title: "SaaS pricing help", Subreddit: "startups"},
			},
		},
		postErrs: map[string]error{
			"deadsub": assert.AnError,
		},
	}
	classifier := &fakeClassifier{mentionAll: false}
	service, tracker, _ := newTestService(fetcher, classifier, &fakeBudget{})

	id, err := service.Accept(context.Background(), Request{
		Subreddits: []string{"startups", "deadsub"},
		Keywords:   []string{"SaaS"},
	})
	require.NoError(t, err)

	final := waitForTerminal(t, tracker, id)
	assert.Equal(t, models.StatusCompleted, final.Status)
	require.NotNil(t, final.Report)
	assert.Equal(t, 1, final.Report.TotalPosts)
	require.Len(t, final.Report.PostResults, 1)
	assert.Equal(t, "p1", final.Report.PostResults[0].PostID)
}

func TestRun_AllTargetsFailing(t *testing.T) {
	fetcher := &fakeFetcher{
		postErrs: map[string]error{
			"startups": assert.AnError,
		},
	}
	service, tracker, _ := newTestService(fetcher, &fakeClassifier{}, &fakeBudget{})

	id, err := service.Accept(context.Background(), Request{
		Subreddits: []string{"startups"},
		Keywords:   []string{"SaaS"},
	})
	require.NoError(t, err)

	final := waitForTerminal(t, tracker, id)
	assert.Equal(t, models.StatusFailed, final.Status)
	assert.NotEmpty(t, final.Error)
}

func TestRun_PanicMarksFailed(t *testing.T) {
	fetcher := &fakeFetcher{
		posts: map[string][]models.ContentItem{
			"startups": {
				{ID: "p1", Author: "founder", Title: "SaaS pricing", Subreddit: "startups"},
			},
		},
	}
	service, tracker, _ := newTestService(fetcher, &fakeClassifier{panics: true}, &fakeBudget{})

	id, err := service.Accept(context.Background(), Request{
		Subreddits: []string{"startups"},
		Keywords:   []string{"SaaS"},
	})
	require.NoError(t, err)

	final := waitForTerminal(t, tracker, id)
	require.Equal(t, models.StatusFailed, final.Status)
	assert.Contains(t, final.Error, "internal error")

	// Status fetch after failure does not error
	record, err := tracker.GetRequestStatus(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, record.Status)
}

func TestRun_CommentFetchFailureNonFatal(t *testing.T) {
	fetcher := &fakeFetcher{
		posts: map[string][]models.ContentItem{
			"startups": {
				{ID: "p1", Author: "founder", Title: "SaaS pricing", Subreddit: "startups"},
			},
		},
		commentErr: assert.AnError,
	}
	service, tracker, _ := newTestService(fetcher, &fakeClassifier{mentionAll: true}, &fakeBudget{})

	id, err := service.Accept(context.Background(), Request{
		Subreddits: []string{"startups"},
		Keywords:   []string{"SaaS"},
	})
	require.NoError(t, err)

	final := waitForTerminal(t, tracker, id)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.Empty(t, final.Report.CommentResults)
}
