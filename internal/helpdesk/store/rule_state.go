package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"erp-helpdesk-workers/internal/helpdesk/rules"
)

// RuleStateCache keeps each rule's last evaluation time and matches in Redis so replicas
// share one schedule.
type RuleStateCache struct {
	client redis.Cmdable
	prefix string
}

func NewRuleStateCache(client redis.Cmdable, prefix string) *RuleStateCache {
	if prefix == "" {
		prefix = "helpdesk"
	}
	return &RuleStateCache{client: client, prefix: prefix}
}

func (c *RuleStateCache) lastRunKey(ruleID int64) string {
	return fmt.Sprintf("%s:rule:%d:last_run", c.prefix, ruleID)
}

func (c *RuleStateCache) matchesKey(ruleID int64) string {
	return fmt.Sprintf("%s:rule:%d:matches", c.prefix, ruleID)
}

func (c *RuleStateCache) LastRun(ctx context.Context, ruleID int64) (time.Time, bool, error) {
	raw, err := c.client.Get(ctx, c.lastRunKey(ruleID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read last run of rule %d: %w", ruleID, err)
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, nil
	}
	return at, true, nil
}

func (c *RuleStateCache) CachedMatches(ctx context.Context, ruleID int64) ([]rules.Match, bool, error) {
	raw, err := c.client.Get(ctx, c.matchesKey(ruleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read matches of rule %d: %w", ruleID, err)
	}
	var matches []rules.Match
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, false, nil
	}
	return matches, true, nil
}

// SaveRun stores the evaluation time and matches, both expiring after ttl.
func (c *RuleStateCache) SaveRun(ctx context.Context, ruleID int64, at time.Time, matches []rules.Match, ttl time.Duration) error {
	if matches == nil {
		matches = []rules.Match{}
	}
	payload, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("encode matches of rule %d: %w", ruleID, err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.lastRunKey(ruleID), at.UTC().Format(time.RFC3339Nano), ttl)
		pipe.Set(ctx, c.matchesKey(ruleID), payload, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save run of rule %d: %w", ruleID, err)
	}
	return nil
}
