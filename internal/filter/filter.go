package filter

import (
	"strings"
	"unicode"

	"github.com/demandradar/demand-radar/internal/models"
	"github.com/sirupsen/logrus"
)

// automodAuthor posts moderation notices, never organic content.
const automodAuthor = "automoderator"

// Boilerplate dropped by structural rejection. Exact case-insensitive
// substring matches only; no fuzzy matching at this stage.
var removalPhrases = []string{
	"[removed]",
	"[deleted]",
	"i am a bot",
	"your post has been removed",
	"this post has been removed",
	"your submission has been removed",
	"violates rule",
	"violation of rule",
	"please read the rules",
	"read the subreddit rules",
	"contact the moderators",
}

// synonymGroups maps an anchor concept to sibling terms. A token hitting any
// member of a group counts as a keyword match when the anchor or a sibling
// equals a requested keyword. Recall-oriented: false positives are cheap
// because the classifier runs after this.
var synonymGroups = map[string][]string{
	"laptop":    {"macbook", "workstation", "pc", "computer", "notebook"},
	"phone":     {"smartphone", "iphone", "android", "mobile", "handset"},
	"saas":      {"software", "subscription", "platform", "webapp"},
	"crm":       {"salesforce", "hubspot", "pipedrive"},
	"hosting":   {"vps", "server", "cloud", "dedicated"},
	"camera":    {"dslr", "mirrorless", "gopro", "webcam"},
	"headphone": {"headphones", "earbuds", "airpods", "headset"},
	"monitor":   {"display", "screen", "ultrawide"},
	"keyboard":  {"mechanical", "keycaps"},
	"car":       {"vehicle", "suv", "sedan", "ev"},
}

// termToGroup indexes every anchor and sibling to its group anchor.
var termToGroup = buildTermIndex()

func buildTermIndex() map[string]string {
	index := make(map[string]string)
	for anchor, siblings := range synonymGroups {
		index[anchor] = anchor
		for _, sibling := range siblings {
			index[sibling] = anchor
		}
	}
	return index
}

// Service is the two-stage relevance filter. Both stages are stateless and
// order preserving, so filtering twice yields identical output.
type Service struct{}

// NewService creates a relevance filter.
func NewService() *Service {
	return &Service{}
}

// Apply runs structural rejection and then relevance matching, returning the
// subsequence of items passing both.
func (s *Service) Apply(items []models.ContentItem, keywords []string) []models.ContentItem {
	structural := make([]models.ContentItem, 0, len(items))
	for _, item := range items {
		if s.isStructuralReject(item) {
			continue
		}
		structural = append(structural, item)
	}

	relevant := make([]models.ContentItem, 0, len(structural))
	for _, item := range structural {
		if s.isRelevant(item, keywords) {
			relevant = append(relevant, item)
		}
	}

	logrus.Infof("Filter pass-through: structural %d/%d, relevance %d/%d",
		len(structural), len(items), len(relevant), len(structural))

	return relevant
}

// isStructuralReject drops moderation output and removal boilerplate.
func (s *Service) isStructuralReject(item models.ContentItem) bool {
	if strings.EqualFold(item.Author, automodAuthor) {
		return true
	}
	if item.Distinguished == "moderator" {
		return true
	}

	content := strings.ToLower(item.Title + " " + item.Body)
	for _, phrase := range removalPhrases {
		if strings.Contains(content, phrase) {
			return true
		}
	}
	return false
}

// isRelevant passes an item when a keyword appears as a substring or a token
// belongs to a synonym group anchored by a keyword.
func (s *Service) isRelevant(item models.ContentItem, keywords []string) bool {
	content := strings.ToLower(item.Title + " " + item.Body)

	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(content, strings.ToLower(keyword)) {
			return true
		}
	}

	return s.matchesSynonymGroup(content, keywords)
}

func (s *Service) matchesSynonymGroup(content string, keywords []string) bool {
	for _, token := range tokenize(content) {
		anchor, ok := termToGroup[token]
		if !ok {
			continue
		}
		if groupMatchesKeywords(anchor, keywords) {
			return true
		}
	}
	return false
}

// groupMatchesKeywords reports whether a group's anchor or any sibling equals
// one of the requested keywords. Matching is symmetric across the group.
func groupMatchesKeywords(anchor string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.EqualFold(keyword, anchor) {
			return true
		}
		for _, sibling := range synonymGroups[anchor] {
			if strings.EqualFold(keyword, sibling) {
				return true
			}
		}
	}
	return false
}

func tokenize(content string) []string {
	return strings.FieldsFunc(content, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
