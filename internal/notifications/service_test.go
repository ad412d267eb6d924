package notifications

import (
	"testing"
	"time"

	"github.com/demandradar/demand-radar/internal/config"
	"github.com/demandradar/demand-radar/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func sampleRecords() []*models.RequestStatus {
	return []*models.RequestStatus{
		{
			ID:         "req-1",
			Status:     models.StatusCompleted,
			Subreddits: []string{"startups", "saas"},
			Keywords:   []string{"crm"},
			Report: &models.AnalysisReport{
				TotalPosts:      40,
				FilteredPosts:   6,
				HighIntentPosts: 2,
			},
			UpdatedAt: time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:         "req-2",
			Status:     models.StatusFailed,
			Subreddits: []string{"webdev"},
			Keywords:   []string{"hosting"},
			Error:      "failed to fetch posts from all target subreddits",
		},
		{
			ID:     "req-3",
			Status: models.StatusInProgress,
		},
	}
}

func TestSendDigest(t *testing.T) {
	var sent *gomail.Message
	service := &Service{
		config: &config.Config{
			NotificationEmail: "team@example.com",
			SMTPUsername:      "radar@example.com",
		},
		send: func(m *gomail.Message) error {
			sent = m
			return nil
		},
	}

	err := service.SendDigest("daily", sampleRecords())
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, []string{"team@example.com"}, sent.GetHeader("To"))
	assert.Contains(t, sent.GetHeader("Subject")[0], "daily digest (2 analyses)")
}

func TestSendDigest_NoRecipientConfigured(t *testing.T) {
	called := false
	service := &Service{
		config: &config.Config{},
		send: func(m *gomail.Message) error {
			called = true
			return nil
		},
	}

	err := service.SendDigest("daily", sampleRecords())
	require.NoError(t, err)
	assert.False(t, called)
}

func TestBuildDigestView_SplitsByOutcome(t *testing.T) {
	view := buildDigestView("weekly", sampleRecords())

	assert.Equal(t, "weekly", view.Period)
	require.Len(t, view.Completed, 1)
	require.Len(t, view.Failed, 1)
	assert.Equal(t, "req-1", view.Completed[0].ID)
	assert.Equal(t, "req-2", view.Failed[0].ID)
}

func TestBuildDigestBodies(t *testing.T) {
	view := buildDigestView("daily", sampleRecords())

	html, err := buildDigestHTML(view)
	require.NoError(t, err)
	assert.Contains(t, html, "r/startups, r/saas")
	assert.Contains(t, html, "40 posts scanned")
	assert.Contains(t, html, "failed to fetch posts from all target subreddits")

	text := buildDigestText(view)
	assert.Contains(t, text, "Completed analyses: 1")
	assert.Contains(t, text, "Failed analyses: 1")
	assert.Contains(t, text, "r/webdev")
}
