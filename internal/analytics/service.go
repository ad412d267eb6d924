package analytics

import (
	"encoding/json"
	"time"

	"github.com/demandradar/demand-radar/internal/storage"
	"github.com/sirupsen/logrus"
)

// Service records usage telemetry. Every record is emitted from a detached
// goroutine and failures are logged, never surfaced: telemetry must not be
// able to fail a classification or an analysis run.
type Service struct {
	store storage.Store
}

// NewService creates an analytics recorder. A nil store degrades to
// log-only recording.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

type classifierUsageEvent struct {
	Type             string    `json:"type"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Model            string    `json:"model"`
	RecordedAt       time.Time `json:"recorded_at"`
}

type contentRequestEvent struct {
	Type              string    `json:"type"`
	Source            string    `json:"source"`
	Subreddits        []string  `json:"subreddits"`
	Keywords          []string  `json:"keywords"`
	PostMatchCount    int       `json:"post_match_count"`
	CommentMatchCount int       `json:"comment_match_count"`
	RecordedAt        time.Time `json:"recorded_at"`
}

// RecordClassifierUsage tracks token consumption of one classifier call.
func (s *Service) RecordClassifierUsage(promptTokens, completionTokens int, model string) {
	event := classifierUsageEvent{
		Type:             "classifier_usage",
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Model:            model,
		RecordedAt:       time.Now().UTC(),
	}

	s.submit(func() {
		logrus.Infof("Classifier usage: %d prompt + %d completion = %d tokens (%s)",
			promptTokens, completionTokens, event.TotalTokens, model)
		s.appendEvent("analytics/classifier-usage.jsonl", event)
	})
}

// RecordContentRequest tracks one completed analysis run and its match counts.
func (s *Service) RecordContentRequest(source string, subreddits, keywords []string, postMatches, commentMatches int) {
	event := contentRequestEvent{
		Type:              "content_request",
		Source:            source,
		Subreddits:        append([]string(nil), subreddits...),
		Keywords:          append([]string(nil), keywords...),
		PostMatchCount:    postMatches,
		CommentMatchCount: commentMatches,
		RecordedAt:        time.Now().UTC(),
	}

	s.submit(func() {
		logrus.Infof("Content request: %d subreddits, %d keywords, %d post matches, %d comment matches",
			len(subreddits), len(keywords), postMatches, commentMatches)
		s.appendEvent("analytics/content-requests.jsonl", event)
	})
}

// submit runs work detached from the caller. A panic in telemetry is logged
// and swallowed.
func (s *Service) submit(work func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("Analytics recording panicked: %v", r)
			}
		}()
		work()
	}()
}

func (s *Service) appendEvent(name string, event any) {
	if s.store == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		logrus.Errorf("Failed to marshal analytics event: %v", err)
		return
	}

	if err := s.store.Append(name, append(data, '\n')); err != nil {
		logrus.Errorf("Failed to append analytics event to %s: %v", name, err)
	}
}
