package searchknowledgebase

import "erp-helpdesk-workers/internal/models"

type Input struct {
	Query    string `json:"query"`
	Category string `json:"category"`
	Language string `json:"language"`
	Limit    int    `json:"limit"`
}

// Result is one ranked article, answered in the query's language.
type Result struct {
	ArticleID       int64           `json:"articleId"`
	Title           string          `json:"title"`
	Category        string          `json:"category"`
	Question        string          `json:"question"`
	Answer          string          `json:"answer"`
	Language        models.Language `json:"language"`
	Score           float64         `json:"score"`
	Confident       bool            `json:"confident"`
	MatchedKeywords []string        `json:"matchedKeywords,omitempty"`
}

type Output struct {
	Results  []Result        `json:"results"`
	Language models.Language `json:"language"`
	Total    int             `json:"total"`
}
