// Package store persists help-desk data in PostgreSQL, caches rule state in Redis and
// searches articles in Elasticsearch.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"erp-helpdesk-workers/internal/models"
)

var ErrNotFound = errors.New("record not found")

// PostgresStore reads and writes the help-desk tables.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

const articleColumns = `id, title, COALESCE(category, ''), COALESCE(keywords, ''), question, answer,
	COALESCE(answer_urdu, ''), language, COALESCE(related_doctype, ''), is_active,
	usage_count, helpful_count, unhelpful_count, updated_at`

// ListArticles returns every active article of the filter's category and language,
// ordered by id. It reads in pages of filter.Limit rows keyed on id, so the whole table is
// scanned whatever its size.
func (s *PostgresStore) ListArticles(ctx context.Context, filter models.ArticleFilter) ([]models.KnowledgeArticle, error) {
	pageSize := filter.Limit
	if pageSize <= 0 {
		pageSize = 200
	}

	where := []string{"is_active = TRUE"}
	var args []interface{}
	bind := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Category != "" {
		where = append(where, "category = "+bind(filter.Category))
	}
	if labels, urduAnswer := languageLabels(filter.Language); len(labels) > 0 {
		cond := "lower(trim(language)) = ANY(" + bind(pq.Array(labels)) + ")"
		if urduAnswer {
			cond = "(" + cond + " OR COALESCE(answer_urdu, '') <> '')"
		}
		where = append(where, cond)
	}
	base := len(args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM helpdesk_articles
		WHERE %s AND id > $%d
		ORDER BY id
		LIMIT $%d`, articleColumns, strings.Join(where, " AND "), base+1, base+2)

	articles := []models.KnowledgeArticle{}
	var after int64
	for {
		pageArgs := append(append([]interface{}{}, args...), after, pageSize)
		page, err := s.queryArticles(ctx, query, pageArgs...)
		if err != nil {
			return nil, fmt.Errorf("list articles: %w", err)
		}
		articles = append(articles, page...)
		if len(page) < pageSize {
			return articles, nil
		}
		after = page[len(page)-1].ID
	}
}

func (s *PostgresStore) queryArticles(ctx context.Context, query string, args ...interface{}) ([]models.KnowledgeArticle, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// languageLabels lists the stored language values that can answer lang, and whether an
// Urdu answer column also qualifies. Unknown matches everything.
func languageLabels(lang models.Language) ([]string, bool) {
	switch lang {
	case models.LanguageEnglish:
		return []string{"english", "en", "bilingual", "both"}, false
	case models.LanguageUrdu:
		return []string{"urdu", "ur", "bilingual", "both"}, true
	default:
		return nil, false
	}
}

// GetArticlesByIDs returns the active articles among ids.
func (s *PostgresStore) GetArticlesByIDs(ctx context.Context, ids []int64) ([]models.KnowledgeArticle, error) {
	if len(ids) == 0 {
		return []models.KnowledgeArticle{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+articleColumns+`
		FROM helpdesk_articles
		WHERE is_active = TRUE AND id = ANY($1)
		ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get articles: %w", err)
	}
	defer rows.Close()
	return scanArticles(rows)
}

func scanArticles(rows *sql.Rows) ([]models.KnowledgeArticle, error) {
	articles := []models.KnowledgeArticle{}
	for rows.Next() {
		var a models.KnowledgeArticle
		var keywords, language string
		if err := rows.Scan(&a.ID, &a.Title, &a.Category, &keywords, &a.Question, &a.Answer,
			&a.AnswerUrdu, &language, &a.RelatedDoctype, &a.IsActive,
			&a.UsageCount, &a.HelpfulCount, &a.UnhelpfulCount, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.Keywords = models.SplitKeywords(keywords)
		a.Language = models.ParseLanguage(language)
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// IncrementArticleUsage counts one more answer served from the article.
func (s *PostgresStore) IncrementArticleUsage(ctx context.Context, articleID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE helpdesk_articles SET usage_count = usage_count + 1 WHERE id = $1`, articleID)
	if err != nil {
		return fmt.Errorf("increment usage of article %d: %w", articleID, err)
	}
	return nil
}

// ListActiveRules returns the active proactive rules in evaluation order.
func (s *PostgresStore) ListActiveRules(ctx context.Context) ([]models.ProactiveRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_name, rule_type, COALESCE(target_doctype, ''), context_independent,
		       condition, message_template, COALESCE(message_template_urdu, ''),
		       priority, check_frequency, is_active, sort_order
		FROM helpdesk_rules
		WHERE is_active = TRUE
		ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	rules := []models.ProactiveRule{}
	for rows.Next() {
		var r models.ProactiveRule
		var ruleType, priority, frequency string
		if err := rows.Scan(&r.ID, &r.Name, &ruleType, &r.TargetDoctype, &r.ContextIndependent,
			&r.Condition, &r.TemplateEN, &r.TemplateUR,
			&priority, &frequency, &r.IsActive, &r.SortOrder); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.Type = models.RuleType(ruleType)
		r.Priority = models.ParsePriority(priority)
		r.Frequency = models.ParseFrequency(frequency)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// Ping checks the connection; used by the readiness probe.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
