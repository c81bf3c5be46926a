// Package ranking scores knowledge-base articles against an utterance.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/helpdesk/textutil"
	"erp-helpdesk-workers/internal/models"
)

// Config holds the scoring weights. The three weights sum to the maximum score.
type Config struct {
	KeywordWeight  float64
	PhraseWeight   float64
	ExactBonus     float64
	MinConfidence  float64
	CandidateLimit int
}

func DefaultConfig() Config {
	return Config{
		KeywordWeight:  60,
		PhraseWeight:   30,
		ExactBonus:     10,
		MinConfidence:  45,
		CandidateLimit: 200,
	}
}

// ArticleSource lists active, language-compatible articles.
type ArticleSource interface {
	ListArticles(ctx context.Context, filter models.ArticleFilter) ([]models.KnowledgeArticle, error)
	GetArticlesByIDs(ctx context.Context, ids []int64) ([]models.KnowledgeArticle, error)
}

// ArticleIndex narrows candidates with a full-text search before scoring.
type ArticleIndex interface {
	SearchArticleIDs(ctx context.Context, query string, filter models.ArticleFilter) ([]int64, error)
}

type Ranker struct {
	config Config
	source ArticleSource
	index  ArticleIndex
	logger logger.Logger
}

// NewRanker builds a ranker. index may be nil.
func NewRanker(config Config, source ArticleSource, index ArticleIndex, log logger.Logger) *Ranker {
	return &Ranker{config: config, source: source, index: index, logger: log}
}

func (r *Ranker) Config() Config { return r.config }

// Search loads candidates and ranks them. limit <= 0 returns every scored article.
func (r *Ranker) Search(ctx context.Context, query string, lang models.Language, category string, limit int) ([]models.MatchResult, error) {
	filter := models.ArticleFilter{Language: lang, Category: category, Limit: r.config.CandidateLimit}

	articles, err := r.candidates(ctx, query, filter)
	if err != nil {
		return nil, err
	}

	results := r.Rank(query, lang, articles)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (r *Ranker) candidates(ctx context.Context, query string, filter models.ArticleFilter) ([]models.KnowledgeArticle, error) {
	if r.index != nil {
		ids, err := r.index.SearchArticleIDs(ctx, query, filter)
		switch {
		case err != nil:
			r.logger.Warn("article index search failed, reading from database", map[string]interface{}{
				"error": err.Error(),
			})
		case len(ids) > 0:
			articles, err := r.source.GetArticlesByIDs(ctx, ids)
			if err != nil {
				return nil, fmt.Errorf("loading indexed articles: %w", err)
			}
			return articles, nil
		}
	}

	articles, err := r.source.ListArticles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	return articles, nil
}

// Rank scores every language-compatible active article, drops zero scores and sorts by
// score descending, then by lowest article ID.
func (r *Ranker) Rank(query string, lang models.Language, articles []models.KnowledgeArticle) []models.MatchResult {
	q := newQuery(query)
	if q.norm == "" {
		return []models.MatchResult{}
	}

	results := make([]models.MatchResult, 0, len(articles))
	for i := range articles {
		a := &articles[i]
		if !a.IsActive || !a.SupportsLanguage(lang) {
			continue
		}
		score, matched := r.score(q, a)
		if score <= 0 {
			continue
		}
		results = append(results, models.MatchResult{
			Article:         *a,
			Score:           score,
			MatchedKeywords: matched,
			Confident:       score >= r.config.MinConfidence,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Article.ID < results[j].Article.ID
	})
	return results
}

type query struct {
	norm    string
	padded  string
	tokens  map[string]struct{}
	content map[string]struct{}
}

func newQuery(text string) query {
	norm := textutil.Normalize(text)
	return query{
		norm:    norm,
		padded:  textutil.Pad(norm),
		tokens:  textutil.TokenSet(norm),
		content: textutil.ContentTokens(norm),
	}
}

func (r *Ranker) score(q query, a *models.KnowledgeArticle) (float64, []string) {
	keywordFraction, matched, allExact := keywordScore(q, a.Keywords)
	phrase := phraseScore(q, a)

	score := r.config.KeywordWeight*keywordFraction + r.config.PhraseWeight*phrase
	if allExact {
		score += r.config.ExactBonus
	}
	return clamp(score), matched
}

// keywordScore counts a keyword found as a contiguous phrase as 1 and a keyword whose
// words all appear apart as 0.5.
func keywordScore(q query, keywords []string) (float64, []string, bool) {
	var total float64
	var matched []string
	counted, exact := 0, 0

	for _, raw := range keywords {
		kw := textutil.Normalize(raw)
		if kw == "" {
			continue
		}
		counted++
		if textutil.ContainsPhrase(q.padded, kw) {
			total++
			exact++
			matched = append(matched, kw)
			continue
		}
		if allTokensPresent(q.tokens, kw) {
			total += 0.5
			matched = append(matched, kw)
		}
	}
	if counted == 0 {
		return 0, nil, false
	}
	return total / float64(counted), matched, exact == counted
}

func allTokensPresent(tokens map[string]struct{}, phrase string) bool {
	set := textutil.TokenSet(phrase)
	if len(set) == 0 {
		return false
	}
	for tok := range set {
		if _, ok := tokens[tok]; !ok {
			return false
		}
	}
	return true
}

// phraseScore is 1 when the article's question appears whole in the query, otherwise the
// better Dice overlap of content words against the question or the title.
func phraseScore(q query, a *models.KnowledgeArticle) float64 {
	question := textutil.Normalize(a.Question)
	if question != "" && textutil.ContainsPhrase(q.padded, question) {
		return 1
	}
	best := textutil.Dice(q.content, textutil.ContentTokens(question))
	if title := textutil.Dice(q.content, textutil.ContentTokens(textutil.Normalize(a.Title))); title > best {
		best = title
	}
	return best
}

func clamp(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return math.Round(score*100) / 100
}
