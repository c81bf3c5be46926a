package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"erp-helpdesk-workers/internal/models"
)

// ArticleIndex narrows knowledge-base candidates with an Elasticsearch full-text query.
type ArticleIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewArticleIndex(client *elasticsearch.Client, index string) *ArticleIndex {
	if index == "" {
		index = "helpdesk-articles"
	}
	return &ArticleIndex{client: client, index: index}
}

// SearchArticleIDs returns the IDs of active articles matching query, best hit first.
func (i *ArticleIndex) SearchArticleIDs(ctx context.Context, query string, filter models.ArticleFilter) ([]int64, error) {
	size := filter.Limit
	if size <= 0 || size > 200 {
		size = 200
	}

	body, err := json.Marshal(buildArticleQuery(query, filter))
	if err != nil {
		return nil, fmt.Errorf("encode article query: %w", err)
	}

	req := esapi.SearchRequest{
		Index:          []string{i.index},
		Body:           bytes.NewReader(body),
		Size:           &size,
		SourceIncludes: []string{"id"},
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search %s failed: %s", i.index, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string `json:"_id"`
				Source struct {
					ID *int64 `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]int64, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if hit.Source.ID != nil {
			ids = append(ids, *hit.Source.ID)
			continue
		}
		if id, err := strconv.ParseInt(hit.ID, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func buildArticleQuery(query string, filter models.ArticleFilter) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"is_active": true}},
	}
	if filter.Category != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"category": filter.Category},
		})
	}

	switch filter.Language {
	case models.LanguageEnglish:
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"language": []string{string(models.LanguageEnglish), string(models.LanguageBilingual)}},
		})
	case models.LanguageUrdu:
		filters = append(filters, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"terms": map[string]interface{}{
						"language": []string{string(models.LanguageUrdu), string(models.LanguageBilingual)},
					}},
					map[string]interface{}{"exists": map[string]interface{}{"field": "answer_urdu"}},
				},
				"minimum_should_match": 1,
			},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  query,
							"fields": []string{"title^3", "question^2", "keywords^2", "answer"},
							"type":   "best_fields",
						},
					},
				},
				"filter": filters,
			},
		},
	}
}
