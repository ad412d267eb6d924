package scheduler

import (
	"testing"
	"time"

	"github.com/demandradar/demand-radar/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterWindow(t *testing.T) {
	now := time.Now().UTC()
	records := []*models.RequestStatus{
		{ID: "fresh-completed", Status: models.StatusCompleted, UpdatedAt: now.Add(-time.Hour)},
		{ID: "fresh-failed", Status: models.StatusFailed, UpdatedAt: now.Add(-2 * time.Hour)},
		{ID: "stale", Status: models.StatusCompleted, UpdatedAt: now.Add(-48 * time.Hour)},
		{ID: "running", Status: models.StatusInProgress, UpdatedAt: now},
	}

	kept := filterWindow(records, now.Add(-24*time.Hour))

	require.Len(t, kept, 2)
	assert.Equal(t, "fresh-completed", kept[0].ID)
	assert.Equal(t, "fresh-failed", kept[1].ID)
}

func TestFilterWindow_Empty(t *testing.T) {
	assert.Empty(t, filterWindow(nil, time.Now()))
}
