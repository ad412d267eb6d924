package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/demandradar/demand-radar/internal/filter"
	"github.com/demandradar/demand-radar/internal/models"
	"github.com/demandradar/demand-radar/internal/status"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Request is the client-facing analysis request. Bounds are enforced before
// anything else happens.
type Request struct {
	Subreddits []string `json:"subreddits" validate:"required,min=1,max=3,dive,required"`
	Keywords   []string `json:"keywords" validate:"required,min=1,max=5,dive,required,max=100"`
}

// ValidationError marks client input that is out of bounds. It is rejected
// synchronously, before a status record is created.
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

// ContentFetcher retrieves posts and comments under the rate budget.
type ContentFetcher interface {
	FetchPosts(ctx context.Context, subreddit string, limit int) ([]models.ContentItem, error)
	FetchComments(ctx context.Context, postID string, limit int) ([]models.CommentItem, error)
}

// IntentClassifier judges buying intent over batches of filtered content.
type IntentClassifier interface {
	ClassifyBatch(ctx context.Context, inputs []models.ClassificationInput) []models.ClassificationResult
	ClassifyCommentsBatch(ctx context.Context, inputs []models.CommentsClassificationInput) []models.CommentsClassificationResult
}

// BudgetChecker is consulted at acceptance so a request with no budget is
// rejected before a pipeline ever starts. It never consumes.
type BudgetChecker interface {
	CheckBudget(ctx context.Context) error
}

// AnalyticsRecorder receives the end-of-run summary event, best-effort.
type AnalyticsRecorder interface {
	RecordContentRequest(source string, subreddits, keywords []string, postMatches, commentMatches int)
}

// Metrics holds orchestrator counters, exposed at /metrics.
type Metrics struct {
	Accepted        int       `json:"accepted"`
	Completed       int       `json:"completed"`
	Failed          int       `json:"failed"`
	LastRun         time.Time `json:"last_run"`
	LastRunDuration string    `json:"last_run_duration"`
}

// Service is the analysis orchestrator. It owns the request state machine
// (pending -> in_progress -> completed|failed) and sequences the pipeline:
// fetch, filter, classify posts, classify comments, report.
type Service struct {
	fetcher      ContentFetcher
	filter       *filter.Service
	classifier   IntentClassifier
	tracker      status.Tracker
	budget       BudgetChecker
	analytics    AnalyticsRecorder
	validate     *validator.Validate
	postLimit    int
	commentLimit int

	mu      sync.RWMutex
	metrics Metrics
}

// NewService creates an analysis orchestrator.
func NewService(
	fetcher ContentFetcher,
	relevance *filter.Service,
	classifier IntentClassifier,
	tracker status.Tracker,
	budget BudgetChecker,
	analytics AnalyticsRecorder,
	postLimit, commentLimit int,
) *Service {
	return &Service{
		fetcher:      fetcher,
		filter:       relevance,
		classifier:   classifier,
		tracker:      tracker,
		budget:       budget,
		analytics:    analytics,
		validate:     validator.New(),
		postLimit:    postLimit,
		commentLimit: commentLimit,
	}
}

// Accept validates a request, checks the rate budget, creates the status
// record and starts the pipeline in the background. The returned request ID
// is available immediately for status polling.
func (s *Service) Accept(ctx context.Context, req Request) (string, error) {
	if err := s.validateRequest(req); err != nil {
		return "", err
	}

	// Reject up front when the window budget is gone, without consuming it.
	if err := s.budget.CheckBudget(ctx); err != nil {
		return "", err
	}

	record, err := s.tracker.CreateRequest(req.Subreddits, req.Keywords)
	if err != nil {
		return "", fmt.Errorf("failed to create status record: %w", err)
	}

	s.mu.Lock()
	s.metrics.Accepted++
	s.mu.Unlock()

	// The pipeline outlives the HTTP request, so it gets its own context.
	// There is no cancellation once a request is in progress.
	go s.run(context.Background(), record.ID, req)

	return record.ID, nil
}

func (s *Service) validateRequest(req Request) error {
	if err := s.validate.Struct(req); err != nil {
		return &ValidationError{message: validationMessage(err)}
	}
	for _, subreddit := range req.Subreddits {
		if strings.TrimSpace(subreddit) == "" {
			return &ValidationError{message: "subreddits must be non-empty strings"}
		}
	}
	for _, keyword := range req.Keywords {
		if strings.TrimSpace(keyword) == "" {
			return &ValidationError{message: "keywords must be non-empty strings"}
		}
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request"
	}

	fieldErr := fieldErrs[0]
	switch {
	case strings.HasPrefix(fieldErr.Namespace(), "Request.Subreddits"):
		return "subreddits must contain between 1 and 3 non-empty entries"
	case strings.HasPrefix(fieldErr.Namespace(), "Request.Keywords"):
		return "keywords must contain between 1 and 5 non-empty entries of at most 100 characters"
	default:
		return "invalid request"
	}
}

// run executes the pipeline for one accepted request. Any failure, including
// a panic, lands the request in the failed state with a captured message.
func (s *Service) run(ctx context.Context, requestID string, req Request) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Pipeline for request %s panicked: %v", requestID, r)
			s.fail(requestID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	s.updateStatus(requestID, models.StatusInProgress, "Starting analysis", 5)

	// Step: fetch posts per target. A single subreddit failing is logged and
	// skipped; the request fails only when no target could be fetched.
	var allPosts []models.ContentItem
	fetchFailures := 0
	for _, subreddit := range req.Subreddits {
		posts, err := s.fetcher.FetchPosts(ctx, subreddit, s.postLimit)
		if err != nil {
			logrus.Errorf("Skipping r/%s for request %s: %v", subreddit, requestID, err)
			fetchFailures++
			continue
		}
		allPosts = append(allPosts, posts...)
	}
	if fetchFailures == len(req.Subreddits) {
		s.fail(requestID, "failed to fetch posts from all target subreddits")
		return
	}

	totalPosts := len(allPosts)
	s.updateStatus(requestID, models.StatusInProgress,
		fmt.Sprintf("Fetched %d posts from %d subreddits", totalPosts, len(req.Subreddits)-fetchFailures), 25)

	// Step: two-stage relevance filter.
	filtered := s.filter.Apply(allPosts, req.Keywords)
	s.updateStatus(requestID, models.StatusInProgress,
		fmt.Sprintf("Filtered to %d relevant posts", len(filtered)), 40)

	// Step: classify filtered posts in one batch.
	postInputs := make([]models.ClassificationInput, 0, len(filtered))
	for _, post := range filtered {
		postInputs = append(postInputs, models.ClassificationInput{
			PostID:    post.ID,
			Title:     post.Title,
			Permalink: post.Permalink,
			Text:      post.Title + "\n\n" + post.Body,
			Keywords:  req.Keywords,
		})
	}
	postResults := s.classifier.ClassifyBatch(ctx, postInputs)
	s.updateStatus(requestID, models.StatusInProgress,
		fmt.Sprintf("Classified %d posts", len(postResults)), 60)

	// Step: comments for every filtered post, not only high-intent ones. A
	// failed comment fetch skips that post's comments.
	var commentInputs []models.CommentsClassificationInput
	for _, post := range filtered {
		comments, err := s.fetcher.FetchComments(ctx, post.ID, s.commentLimit)
		if err != nil {
			logrus.Errorf("Skipping comments of post %s for request %s: %v", post.ID, requestID, err)
			continue
		}
		if len(comments) == 0 {
			continue
		}
		bodies := make([]string, 0, len(comments))
		for _, comment := range comments {
			bodies = append(bodies, comment.Body)
		}
		commentInputs = append(commentInputs, models.CommentsClassificationInput{
			PostID:   post.ID,
			Comments: bodies,
			Keywords: req.Keywords,
		})
	}
	commentResults := s.classifier.ClassifyCommentsBatch(ctx, commentInputs)
	s.updateStatus(requestID, models.StatusInProgress,
		fmt.Sprintf("Classified comments of %d posts", len(commentResults)), 85)

	// Step: assemble and store the report.
	report := &models.AnalysisReport{
		Subreddits:         req.Subreddits,
		Keywords:           req.Keywords,
		TotalPosts:         totalPosts,
		FilteredPosts:      len(filtered),
		PostResults:        postResults,
		CommentResults:     commentResults,
		HighIntentPosts:    countMentionedPosts(postResults),
		HighIntentComments: countMentionedComments(commentResults),
		CompletedAt:        time.Now().UTC(),
	}

	if _, err := s.tracker.MarkCompleted(requestID, report); err != nil {
		logrus.Errorf("Failed to mark request %s completed: %v", requestID, err)
		return
	}

	s.mu.Lock()
	s.metrics.Completed++
	s.metrics.LastRun = time.Now().UTC()
	s.metrics.LastRunDuration = time.Since(start).String()
	s.mu.Unlock()

	if s.analytics != nil {
		s.analytics.RecordContentRequest("reddit", req.Subreddits, req.Keywords,
			report.HighIntentPosts, report.HighIntentComments)
	}

	logrus.Infof("Request %s completed in %v: %d/%d posts relevant, %d high-intent",
		requestID, time.Since(start), len(filtered), totalPosts, report.HighIntentPosts)
}

func (s *Service) updateStatus(requestID, state, message string, progress int) {
	if _, err := s.tracker.UpdateStatus(requestID, state, message, progress); err != nil {
		logrus.Errorf("Failed to update status of request %s: %v", requestID, err)
	}
}

func (s *Service) fail(requestID, message string) {
	if _, err := s.tracker.MarkFailed(requestID, message); err != nil {
		logrus.Errorf("Failed to mark request %s failed: %v", requestID, err)
	}

	s.mu.Lock()
	s.metrics.Failed++
	s.mu.Unlock()
}

// GetMetrics returns a snapshot of the orchestrator counters.
func (s *Service) GetMetrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

func countMentionedPosts(results []models.ClassificationResult) int {
	count := 0
	for _, result := range results {
		if result.Mentioned {
			count++
		}
	}
	return count
}

func countMentionedComments(results []models.CommentsClassificationResult) int {
	count := 0
	for _, result := range results {
		if result.Mentioned {
			count++
		}
	}
	return count
}
