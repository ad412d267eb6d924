package models

import "time"

// ContentItem is a Reddit post after the typed parse at the client boundary,
// enriched with its source subreddit and a canonical permalink.
type ContentItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Author        string    `json:"author"`
	Distinguished string    `json:"distinguished,omitempty"` // "moderator" marks a mod action
	Subreddit     string    `json:"subreddit"`
	Permalink     string    `json:"permalink"`
	Score         int       `json:"score"`
	CommentCount  int       `json:"comment_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// CommentItem is a single comment belonging to a post.
type CommentItem struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// ClassificationInput is one unit of text submitted to the intent classifier.
type ClassificationInput struct {
	PostID    string   `json:"post_id,omitempty"`
	Title     string   `json:"title,omitempty"`
	Permalink string   `json:"permalink,omitempty"`
	Text      string   `json:"text"`
	Keywords  []string `json:"keywords"`
}

// ClassificationResult is the sanitized classifier verdict for one input.
// MentionedKeywords is always a subset of the input keywords and Confidence
// is always within [0,1].
type ClassificationResult struct {
	PostID            string   `json:"post_id,omitempty"`
	Title             string   `json:"title,omitempty"`
	Permalink         string   `json:"permalink,omitempty"`
	Mentioned         bool     `json:"mentioned"`
	MentionedKeywords []string `json:"mentioned_keywords"`
	Snippet           string   `json:"snippet"`
	Confidence        float64  `json:"confidence"`
	Analysis          string   `json:"analysis"`
}

// CommentsClassificationInput aggregates a post's comments for one
// classification call.
type CommentsClassificationInput struct {
	PostID   string   `json:"post_id"`
	Comments []string `json:"comments"`
	Keywords []string `json:"keywords"`
}

// CommentsClassificationResult is the classifier verdict over a post's
// comment set. Only the first 50 comments are analyzed per call.
type CommentsClassificationResult struct {
	PostID               string   `json:"post_id"`
	Mentioned            bool     `json:"mentioned"`
	MentionedKeywords    []string `json:"mentioned_keywords"`
	Snippet              string   `json:"snippet"`
	Confidence           float64  `json:"confidence"`
	Analysis             string   `json:"analysis"`
	CommentCount         int      `json:"comment_count"`
	AnalyzedCommentCount int      `json:"analyzed_comment_count"`
}

// AnalysisReport is the final artifact of one pipeline run.
type AnalysisReport struct {
	Subreddits         []string                       `json:"subreddits"`
	Keywords           []string                       `json:"keywords"`
	TotalPosts         int                            `json:"total_posts"`
	FilteredPosts      int                            `json:"filtered_posts"`
	PostResults        []ClassificationResult         `json:"post_results"`
	CommentResults     []CommentsClassificationResult `json:"comment_results"`
	HighIntentPosts    int                            `json:"high_intent_posts"`
	HighIntentComments int                            `json:"high_intent_comments"`
	CompletedAt        time.Time                      `json:"completed_at"`
}

// Request lifecycle states.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// RequestStatus is the durable lifecycle record of an analysis request.
// It is created at acceptance and mutated only by the orchestrator.
type RequestStatus struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Progress   int             `json:"progress"`
	Subreddits []string        `json:"subreddits"`
	Keywords   []string        `json:"keywords"`
	Report     *AnalysisReport `json:"report,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Clone returns a copy safe to hand out across goroutines. The report
// pointer is shared because reports are immutable once assembled.
func (r *RequestStatus) Clone() *RequestStatus {
	copied := *r
	copied.Subreddits = append([]string(nil), r.Subreddits...)
	copied.Keywords = append([]string(nil), r.Keywords...)
	return &copied
}

// SubredditSuggestion is one subreddit name match.
type SubredditSuggestion struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// KeywordSuggestion is one suggested analysis keyword.
type KeywordSuggestion struct {
	Keyword string `json:"keyword"`
	Results int    `json:"results"`
}
