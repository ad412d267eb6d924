package filter

import (
	"testing"

	"github.com/demandradar/demand-radar/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestStructuralRejection(t *testing.T) {
	service := NewService()

	tests := []struct {
		name     string
		item     models.ContentItem
		rejected bool
	}{
		{
			name: "AutoModerator author rejected regardless of text",
			item: models.ContentItem{
				Author: "AutoModerator",
				Title:  "Looking to buy a SaaS product",
				Body:   "perfectly relevant text",
			},
			rejected: true,
		},
		{
			name: "moderator-distinguished post rejected",
			item: models.ContentItem{
				Author:        "human_mod",
				Distinguished: "moderator",
				Title:         "Announcement",
			},
			rejected: true,
		},
		{
			name: "removal boilerplate rejected",
			item: models.ContentItem{
				Author: "regular_user",
				Title:  "some title",
				Body:   "Your post has been removed because it violates rule 3",
			},
			rejected: true,
		},
		{
			name: "deleted marker rejected",
			item: models.ContentItem{
				Author: "regular_user",
				Body:   "[removed]",
			},
			rejected: true,
		},
		{
			name: "clean post from regular author retained",
			item: models.ContentItem{
				Author: "regular_user",
				Title:  "Need advice on SaaS pricing",
				Body:   "We are evaluating tools",
			},
			rejected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.rejected, service.isStructuralReject(tt.item))
		})
	}
}

func TestRelevanceMatching(t *testing.T) {
	service := NewService()

	tests := []struct {
		name     string
		item     models.ContentItem
		keywords []string
		expected bool
	}{
		{
			name:     "exact keyword substring passes",
			item:     models.ContentItem{Title: "My laptop died", Body: "need a new one"},
			keywords: []string{"laptop"},
			expected: true,
		},
		{
			name:     "case-insensitive keyword passes",
			item:     models.ContentItem{Title: "SAAS pricing question"},
			keywords: []string{"saas"},
			expected: true,
		},
		{
			name:     "synonym sibling passes for anchor keyword",
			item:     models.ContentItem{Title: "Thinking of getting a macbook", Body: "for dev work"},
			keywords: []string{"laptop"},
			expected: true,
		},
		{
			name:     "anchor token passes for sibling keyword",
			item:     models.ContentItem{Title: "My laptop setup"},
			keywords: []string{"notebook"},
			expected: true,
		},
		{
			name:     "neither keyword nor synonym fails",
			item:     models.ContentItem{Title: "Best hiking trails", Body: "in the alps"},
			keywords: []string{"laptop"},
			expected: false,
		},
		{
			name:     "other keyword still matches",
			item:     models.ContentItem{Title: "Best hiking boots to buy"},
			keywords: []string{"laptop", "boots"},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, service.isRelevant(tt.item, tt.keywords))
		})
	}
}

func TestApply_OrderPreservedAndIdempotent(t *testing.T) {
	service := NewService()

	items := []models.ContentItem{
		{ID: "1", Author: "alice", Title: "laptop recommendations"},
		{ID: "2", Author: "AutoModerator", Title: "laptop megathread"},
		{ID: "3", Author: "bob", Title: "anyone selling a macbook?"},
		{ID: "4", Author: "carol", Title: "gardening tips"},
	}
	keywords := []string{"laptop"}

	first := service.Apply(items, keywords)
	second := service.Apply(first, keywords)

	assert.Equal(t, []string{"1", "3"}, ids(first))
	assert.Equal(t, first, second, "filtering must be idempotent")
}

func TestApply_EmptyInput(t *testing.T) {
	service := NewService()
	assert.Empty(t, service.Apply(nil, []string{"laptop"}))
}

func ids(items []models.ContentItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
