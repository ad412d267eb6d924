package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/demandradar/demand-radar/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// maxTextLength bounds how much post text goes into a single prompt.
	maxTextLength = 4000
	// maxAnalyzedComments caps how many of a post's comments are included in
	// one classification call.
	maxAnalyzedComments = 50

	commentSeparator = "\n\n---\n\n"
)

// ErrNoJSON means the generator's response contained no JSON object at all.
var ErrNoJSON = errors.New("no valid JSON found in classifier response")

// UsageRecorder receives token-usage telemetry. Calls are fire-and-forget;
// recording failures never affect classification results.
type UsageRecorder interface {
	RecordClassifierUsage(promptTokens, completionTokens int, model string)
}

// Service judges buying intent in text using a TextGenerator collaborator and
// defensive parsing of its JSON output.
type Service struct {
	generator TextGenerator
	analytics UsageRecorder
}

// NewService creates an intent classifier.
func NewService(generator TextGenerator, analytics UsageRecorder) *Service {
	return &Service{generator: generator, analytics: analytics}
}

// ClassifyText classifies one text blob against its keywords. Call or parse
// failures are returned as errors; batch callers substitute defaults instead.
func (s *Service) ClassifyText(ctx context.Context, input models.ClassificationInput) (models.ClassificationResult, error) {
	prompt := buildPostPrompt(truncate(input.Text, maxTextLength), input.Keywords)

	generated, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("classifier call failed: %w", err)
	}
	s.recordUsage(generated)

	result, err := parseResult(generated.Text, input.Keywords)
	if err != nil {
		return models.ClassificationResult{}, err
	}

	result.PostID = input.PostID
	result.Title = input.Title
	result.Permalink = input.Permalink
	return result, nil
}

// ClassifyBatch classifies inputs in order, one result per input. A failed
// item yields a default "not mentioned" result rather than aborting the batch.
func (s *Service) ClassifyBatch(ctx context.Context, inputs []models.ClassificationInput) []models.ClassificationResult {
	results := make([]models.ClassificationResult, 0, len(inputs))
	for _, input := range inputs {
		result, err := s.ClassifyText(ctx, input)
		if err != nil {
			logrus.Errorf("Classification failed for post %s: %v", input.PostID, err)
			result = defaultResult("Analysis failed")
			result.PostID = input.PostID
			result.Title = input.Title
			result.Permalink = input.Permalink
		}
		results = append(results, result)
	}
	return results
}

// ClassifyComments classifies a post's aggregated comment set. Only the first
// maxAnalyzedComments comments enter the prompt.
func (s *Service) ClassifyComments(ctx context.Context, input models.CommentsClassificationInput) (models.CommentsClassificationResult, error) {
	analyzed := input.Comments
	if len(analyzed) > maxAnalyzedComments {
		analyzed = analyzed[:maxAnalyzedComments]
	}

	prompt := buildCommentsPrompt(analyzed, input.Keywords)

	generated, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return models.CommentsClassificationResult{}, fmt.Errorf("comments classifier call failed: %w", err)
	}
	s.recordUsage(generated)

	parsed, err := parseResult(generated.Text, input.Keywords)
	if err != nil {
		return models.CommentsClassificationResult{}, err
	}

	return models.CommentsClassificationResult{
		PostID:               input.PostID,
		Mentioned:            parsed.Mentioned,
		MentionedKeywords:    parsed.MentionedKeywords,
		Snippet:              parsed.Snippet,
		Confidence:           parsed.Confidence,
		Analysis:             parsed.Analysis,
		CommentCount:         len(input.Comments),
		AnalyzedCommentCount: len(analyzed),
	}, nil
}

// ClassifyCommentsBatch classifies comment sets in order, one result per
// input, substituting a default result for failed items.
func (s *Service) ClassifyCommentsBatch(ctx context.Context, inputs []models.CommentsClassificationInput) []models.CommentsClassificationResult {
	results := make([]models.CommentsClassificationResult, 0, len(inputs))
	for _, input := range inputs {
		result, err := s.ClassifyComments(ctx, input)
		if err != nil {
			logrus.Errorf("Comments classification failed for post %s: %v", input.PostID, err)
			result = models.CommentsClassificationResult{
				PostID:            input.PostID,
				MentionedKeywords: []string{},
				Analysis:          "Comments analysis failed",
				CommentCount:      len(input.Comments),
			}
		}
		results = append(results, result)
	}
	return results
}

func (s *Service) recordUsage(generated *GenerateResult) {
	if s.analytics == nil {
		return
	}
	s.analytics.RecordClassifierUsage(generated.PromptTokens, generated.CompletionTokens, generated.Model)
}

func buildPostPrompt(text string, keywords []string) string {
	return fmt.Sprintf(`Analyze the following text and determine if there are any offers on buying or describing interest in the specified keywords.

TEXT: "%s"

KEYWORDS: [%s]

Please provide your analysis in the following JSON format:
{
  "mentioned": boolean,
  "mentionedKeywords": string[],
  "snippet": string,
  "confidence": number,
  "analysis": string
}

Where:
- "mentioned": true if any of the keywords are mentioned in a buying/interest context, false otherwise
- "mentionedKeywords": array of keywords that were actually mentioned in the text
- "snippet": a short excerpt (1-2 sentences) from the text that contains the relevant mention
- "confidence": a number between 0 and 1 indicating confidence in the analysis
- "analysis": a brief explanation of your reasoning

Focus on identifying:
1. Direct requests to buy products/services
2. Expressions of interest in purchasing
3. Descriptions of needs that could lead to purchases
4. Mentions of specific keywords in relevant contexts

Return ONLY the JSON response, no additional text or explanations.`, text, strings.Join(keywords, ", "))
}

func buildCommentsPrompt(comments []string, keywords []string) string {
	return fmt.Sprintf(`Analyze the following comments and determine if there are any offers on buying or describing interest in the specified keywords.

COMMENTS:
"%s"

KEYWORDS: [%s]

Please provide your analysis in the following JSON format:
{
  "mentioned": boolean,
  "mentionedKeywords": string[],
  "snippet": string,
  "confidence": number,
  "analysis": string
}

Where:
- "mentioned": true if any of the keywords are mentioned in a buying/interest context, false otherwise
- "mentionedKeywords": array of keywords that were actually mentioned in the comments
- "snippet": a short excerpt (1-2 sentences) from the comments that contains the relevant mention
- "confidence": a number between 0 and 1 indicating confidence in the analysis
- "analysis": a brief explanation of your reasoning

Focus on identifying:
1. Direct requests to buy products/services in comments
2. Expressions of interest in purchasing in comments
3. Descriptions of needs that could lead to purchases in comments
4. Mentions of specific keywords in relevant contexts in comments

Return ONLY the JSON response, no additional text or explanations.`, strings.Join(comments, commentSeparator), strings.Join(keywords, ", "))
}

// parseResult extracts and sanitizes the classifier's JSON verdict. The model
// sometimes wraps the JSON in prose despite instructions, so the first
// balanced object is located before unmarshalling, and every field is coerced
// with a type-checked fallback.
func parseResult(response string, keywords []string) (models.ClassificationResult, error) {
	raw := extractJSONObject(response)
	if raw == "" {
		return models.ClassificationResult{}, ErrNoJSON
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return models.ClassificationResult{}, fmt.Errorf("failed to parse classifier response: %w", err)
	}

	return models.ClassificationResult{
		Mentioned:         coerceBool(fields["mentioned"]),
		MentionedKeywords: coerceKeywords(fields["mentionedKeywords"], keywords),
		Snippet:           coerceString(fields["snippet"]),
		Confidence:        clamp01(coerceFloat(fields["confidence"])),
		Analysis:          coerceString(fields["analysis"]),
	}, nil
}

// extractJSONObject returns the first balanced {...} substring, tracking
// string literals so braces inside them don't unbalance the scan.
func extractJSONObject(response string) string {
	start := strings.IndexByte(response, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

func coerceBool(value any) bool {
	b, ok := value.(bool)
	return ok && b
}

func coerceString(value any) string {
	s, _ := value.(string)
	return s
}

func coerceFloat(value any) float64 {
	f, ok := value.(float64)
	if !ok {
		return 0
	}
	return f
}

// coerceKeywords keeps only elements present in the original keyword set, so
// a hallucinated keyword never reaches the report.
func coerceKeywords(value any, keywords []string) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}

	kept := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		for _, keyword := range keywords {
			if s == keyword {
				kept = append(kept, s)
				break
			}
		}
	}
	return kept
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func defaultResult(analysis string) models.ClassificationResult {
	return models.ClassificationResult{
		MentionedKeywords: []string{},
		Analysis:          analysis,
	}
}

// truncate cuts text to at most limit bytes, backing off to a rune boundary
// so the result is always valid UTF-8.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
