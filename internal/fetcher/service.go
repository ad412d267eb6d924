package fetcher

import (
	"context"
	"fmt"

	"github.com/demandradar/demand-radar/internal/models"
	"github.com/demandradar/demand-radar/internal/reddit"
	"github.com/sirupsen/logrus"
)

// ContentLister is the slice of the Reddit client the fetcher needs.
type ContentLister interface {
	ListNewPosts(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error)
	ListComments(ctx context.Context, postID string, limit int) ([]reddit.Comment, error)
}

// Budget is the rate-limit capability consulted around every upstream call.
type Budget interface {
	CheckBudget(ctx context.Context) error
	Consume(ctx context.Context)
}

// Service retrieves posts and comments, paying one budget unit per upstream
// call and enriching items with provenance.
type Service struct {
	client ContentLister
	budget Budget
	pacer  Pacer
}

// NewService creates a content fetcher.
func NewService(client ContentLister, budget Budget, pacer Pacer) *Service {
	return &Service{
		client: client,
		budget: budget,
		pacer:  pacer,
	}
}

// FetchPosts returns the newest posts of a subreddit as enriched ContentItems.
func (s *Service) FetchPosts(ctx context.Context, subreddit string, limit int) ([]models.ContentItem, error) {
	if err := s.budget.CheckBudget(ctx); err != nil {
		return nil, err
	}
	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	posts, err := s.client.ListNewPosts(ctx, subreddit, limit)
	// The call went out either way, so the counter advances either way.
	s.budget.Consume(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts from r/%s: %w", subreddit, err)
	}

	items := make([]models.ContentItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, models.ContentItem{
			ID:            post.ID,
			Title:         post.Title,
			Body:          post.Body,
			Author:        post.Author,
			Distinguished: post.Distinguished,
			Subreddit:     subreddit,
			Permalink:     permalink(post, subreddit),
			Score:         post.Score,
			CommentCount:  post.NumComments,
			CreatedAt:     post.CreatedAt,
		})
	}

	logrus.Debugf("Fetched %d posts from r/%s", len(items), subreddit)
	return items, nil
}

// FetchComments returns the comments of a post.
func (s *Service) FetchComments(ctx context.Context, postID string, limit int) ([]models.CommentItem, error) {
	if err := s.budget.CheckBudget(ctx); err != nil {
		return nil, err
	}
	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	comments, err := s.client.ListComments(ctx, postID, limit)
	s.budget.Consume(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments for post %s: %w", postID, err)
	}

	items := make([]models.CommentItem, 0, len(comments))
	for _, comment := range comments {
		items = append(items, models.CommentItem{
			ID:        comment.ID,
			PostID:    postID,
			Body:      comment.Body,
			Author:    comment.Author,
			Score:     comment.Score,
			CreatedAt: comment.CreatedAt,
		})
	}

	logrus.Debugf("Fetched %d comments for post %s", len(items), postID)
	return items, nil
}

// permalink prefers the post's explicit URL and falls back to the canonical
// comments page for self posts that carry none.
func permalink(post reddit.Post, subreddit string) string {
	if post.URL != "" {
		return post.URL
	}
	return fmt.Sprintf("https://www.reddit.com/r/%s/comments/%s", subreddit, post.ID)
}
