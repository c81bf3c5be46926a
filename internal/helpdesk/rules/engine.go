// Package rules evaluates proactive rules against business records and renders the
// resulting suggestions.
package rules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/common/metrics"
	"erp-helpdesk-workers/internal/models"
)

// Entity is one business record read for condition evaluation.
type Entity struct {
	Name   string
	Fields map[string]interface{}
}

// Match is a record that satisfied a rule, reduced to the strings its message needs.
// Matches are what the state store caches between evaluations.
type Match struct {
	Name string            `json:"name"`
	Data map[string]string `json:"data"`
}

type RuleSource interface {
	ListActiveRules(ctx context.Context) ([]models.ProactiveRule, error)
}

// EntitySource reads the records of a doctype in a stable order. limit <= 0 reads all.
type EntitySource interface {
	FetchEntities(ctx context.Context, doctype string, fields []string, limit int) ([]Entity, error)
}

// StateStore keeps the last-run time and matches of each rule.
type StateStore interface {
	LastRun(ctx context.Context, ruleID int64) (time.Time, bool, error)
	CachedMatches(ctx context.Context, ruleID int64) ([]Match, bool, error)
	SaveRun(ctx context.Context, ruleID int64, at time.Time, matches []Match, ttl time.Duration) error
}

// AlertSink receives critical suggestions produced by a fresh evaluation.
type AlertSink interface {
	Notify(ctx context.Context, suggestions []models.Suggestion) error
}

type Config struct {
	RuleTimeout        time.Duration
	MaxConcurrentRules int
	// MaxEntitiesPerRule caps the records one rule reads. A rule that reaches it is
	// evaluated on the first records by name and reported in Result.Warnings. Zero reads
	// every record.
	MaxEntitiesPerRule int
}

func DefaultConfig() Config {
	return Config{
		RuleTimeout:        2 * time.Second,
		MaxConcurrentRules: 4,
		MaxEntitiesPerRule: 10000,
	}
}

type Request struct {
	Doctype  string
	Docname  string
	Language models.Language
}

type Result struct {
	Suggestions []models.Suggestion  `json:"suggestions"`
	Failures    []models.RuleFailure `json:"failedRules"`
	Warnings    []models.RuleFailure `json:"warnings"`
}

type Engine struct {
	config   Config
	rules    RuleSource
	entities EntitySource
	state    StateStore
	alerts   AlertSink
	now      func() time.Time
	logger   logger.Logger
}

type Option func(*Engine)

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithAlertSink registers the receiver of fresh critical suggestions.
func WithAlertSink(sink AlertSink) Option {
	return func(e *Engine) { e.alerts = sink }
}

// NewEngine builds an engine. state may be nil, in which case every rule is evaluated
// on every call.
func NewEngine(config Config, rules RuleSource, entities EntitySource, state StateStore, log logger.Logger, opts ...Option) *Engine {
	if config.MaxConcurrentRules <= 0 {
		config.MaxConcurrentRules = 1
	}
	e := &Engine{
		config:   config,
		rules:    rules,
		entities: entities,
		state:    state,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type outcome struct {
	suggestions []models.Suggestion
	fresh       bool
	truncated   bool
	err         error
}

// Evaluate runs every active rule relevant to the request. A rule that fails is reported
// in Result.Failures and does not affect the others. Only a failure to list the rules
// is returned as an error.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*Result, error) {
	all, err := e.rules.ListActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing proactive rules: %w", err)
	}
	selected := SelectRules(all, req.Doctype)

	e.logger.Debug("evaluating proactive rules", map[string]interface{}{
		"doctype":  req.Doctype,
		"docname":  req.Docname,
		"selected": len(selected),
		"total":    len(all),
	})

	outcomes := make([]outcome, len(selected))
	g := new(errgroup.Group)
	g.SetLimit(e.config.MaxConcurrentRules)
	for i := range selected {
		g.Go(func() error {
			outcomes[i] = e.evaluateWithBudget(ctx, selected[i], req)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{
		Suggestions: []models.Suggestion{},
		Failures:    []models.RuleFailure{},
		Warnings:    []models.RuleFailure{},
	}
	var freshCritical []models.Suggestion
	for i, o := range outcomes {
		rule := selected[i]
		if o.err != nil {
			metrics.RuleEvaluations.WithLabelValues("failed").Inc()
			e.logger.Warn("proactive rule skipped", map[string]interface{}{
				"ruleId":   rule.ID,
				"ruleName": rule.Name,
				"error":    o.err.Error(),
			})
			result.Failures = append(result.Failures, models.RuleFailure{
				RuleID: rule.ID, RuleName: rule.Name, Reason: o.err.Error(),
			})
			continue
		}
		if o.truncated {
			reason := fmt.Sprintf("only the first %d %s records were evaluated", e.config.MaxEntitiesPerRule, rule.TargetDoctype)
			e.logger.Warn("proactive rule hit the record cap", map[string]interface{}{
				"ruleId":   rule.ID,
				"ruleName": rule.Name,
				"limit":    e.config.MaxEntitiesPerRule,
			})
			result.Warnings = append(result.Warnings, models.RuleFailure{
				RuleID: rule.ID, RuleName: rule.Name, Reason: reason,
			})
		}
		if o.fresh {
			metrics.RuleEvaluations.WithLabelValues("evaluated").Inc()
		} else {
			metrics.RuleEvaluations.WithLabelValues("cached").Inc()
		}
		result.Suggestions = append(result.Suggestions, o.suggestions...)
		if o.fresh && rule.Priority == models.PriorityCritical {
			freshCritical = append(freshCritical, o.suggestions...)
		}
	}

	SortSuggestions(result.Suggestions, selected)

	if e.alerts != nil && len(freshCritical) > 0 {
		if err := e.alerts.Notify(ctx, freshCritical); err != nil {
			e.logger.Error("critical alert delivery failed", map[string]interface{}{
				"count": len(freshCritical),
				"error": err.Error(),
			})
		}
	}
	return result, nil
}

// SelectRules keeps active rules that target doctype or are context independent. An
// empty doctype keeps every active rule. The result is in declaration order.
func SelectRules(all []models.ProactiveRule, doctype string) []models.ProactiveRule {
	out := make([]models.ProactiveRule, 0, len(all))
	for _, r := range all {
		if !r.IsActive {
			continue
		}
		if doctype != "" && r.TargetDoctype != doctype && !r.ContextIndependent {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SortSuggestions orders by priority, then by the rule's position in rules, then by record.
func SortSuggestions(s []models.Suggestion, rules []models.ProactiveRule) {
	position := make(map[int64]int, len(rules))
	for i, r := range rules {
		position[r.ID] = i
	}
	sort.SliceStable(s, func(i, j int) bool {
		if pi, pj := s[i].Priority.Rank(), s[j].Priority.Rank(); pi != pj {
			return pi > pj
		}
		if oi, oj := position[s[i].RuleID], position[s[j].RuleID]; oi != oj {
			return oi < oj
		}
		return linkName(s[i]) < linkName(s[j])
	})
}

func linkName(s models.Suggestion) string {
	if s.Link == nil {
		return ""
	}
	return s.Link.Docname
}

func (e *Engine) evaluateWithBudget(ctx context.Context, rule models.ProactiveRule, req Request) outcome {
	if e.config.RuleTimeout <= 0 {
		return e.evaluateRule(ctx, rule, req)
	}

	ruleCtx, cancel := context.WithTimeout(ctx, e.config.RuleTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		done <- e.evaluateRule(ruleCtx, rule, req)
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(ruleCtx.Err(), context.DeadlineExceeded) {
			return outcome{err: &RuleEvaluationError{RuleID: rule.ID, RuleName: rule.Name, Err: ErrRuleTimeout}}
		}
		return o
	case <-ruleCtx.Done():
		return outcome{err: &RuleEvaluationError{RuleID: rule.ID, RuleName: rule.Name, Err: ErrRuleTimeout}}
	}
}

func (e *Engine) evaluateRule(ctx context.Context, rule models.ProactiveRule, req Request) outcome {
	fail := func(err error) outcome {
		return outcome{err: &RuleEvaluationError{RuleID: rule.ID, RuleName: rule.Name, Err: err}}
	}

	cond, err := Parse(rule.Condition)
	if err != nil {
		return fail(err)
	}
	tmpl, err := compileTemplate(rule, req.Language)
	if err != nil {
		return fail(err)
	}

	now := e.now()
	matches, cached := e.cachedMatches(ctx, rule, now)
	truncated := false
	if !cached {
		matches, truncated, err = e.match(ctx, rule, cond, tmpl.fields, now)
		if err != nil {
			return fail(err)
		}
		e.saveRun(ctx, rule, now, matches)
	}

	suggestions := make([]models.Suggestion, 0, len(matches))
	for _, m := range matches {
		msg, err := tmpl.render(m)
		if err != nil {
			return fail(err)
		}
		suggestions = append(suggestions, models.Suggestion{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			RuleType: rule.Type,
			Message:  msg,
			Priority: rule.Priority,
			Link:     &models.RecordLink{Doctype: rule.TargetDoctype, Docname: m.Name},
		})
	}
	return outcome{suggestions: suggestions, fresh: !cached, truncated: truncated}
}

// cachedMatches returns the stored matches of a rule that is not yet due.
func (e *Engine) cachedMatches(ctx context.Context, rule models.ProactiveRule, now time.Time) ([]Match, bool) {
	interval := rule.Frequency.Interval()
	if e.state == nil || interval <= 0 {
		return nil, false
	}

	last, ok, err := e.state.LastRun(ctx, rule.ID)
	if err != nil {
		e.logger.Warn("rule state unavailable, evaluating", map[string]interface{}{
			"ruleId": rule.ID,
			"error":  err.Error(),
		})
		return nil, false
	}
	if !ok || now.Sub(last) >= interval {
		return nil, false
	}

	matches, ok, err := e.state.CachedMatches(ctx, rule.ID)
	if err != nil || !ok {
		return nil, false
	}
	return matches, true
}

func (e *Engine) saveRun(ctx context.Context, rule models.ProactiveRule, now time.Time, matches []Match) {
	interval := rule.Frequency.Interval()
	if e.state == nil || interval <= 0 {
		return
	}
	if err := e.state.SaveRun(ctx, rule.ID, now, matches, interval); err != nil {
		e.logger.Warn("failed to record rule run", map[string]interface{}{
			"ruleId": rule.ID,
			"error":  err.Error(),
		})
	}
}

// match evaluates cond over the rule's records. It reports whether the record cap cut
// the snapshot short.
func (e *Engine) match(ctx context.Context, rule models.ProactiveRule, cond *Condition, templateFields []string, now time.Time) ([]Match, bool, error) {
	fields := unionFields(cond.Fields(), templateFields)
	limit := e.config.MaxEntitiesPerRule
	fetch := 0
	if limit > 0 {
		fetch = limit + 1
	}
	entities, err := e.entities.FetchEntities(ctx, rule.TargetDoctype, fields, fetch)
	if err != nil {
		return nil, false, fmt.Errorf("fetching %s records: %w", rule.TargetDoctype, err)
	}
	truncated := limit > 0 && len(entities) > limit
	if truncated {
		entities = entities[:limit]
	}

	var matches []Match
	for _, ent := range entities {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		env := &Env{Fields: make(map[string]Value, len(ent.Fields)+1), Now: now}
		for k, raw := range ent.Fields {
			v, err := FromAny(raw)
			if err != nil {
				return nil, false, fmt.Errorf("%w: field %s: %v", ErrTypeMismatch, k, err)
			}
			env.Fields[k] = v
		}
		if _, ok := env.Fields["name"]; !ok {
			env.Fields["name"] = String(ent.Name)
		}

		ok, err := cond.Match(env)
		if err != nil {
			return nil, false, fmt.Errorf("record %s: %w", ent.Name, err)
		}
		if ok {
			matches = append(matches, toMatch(ent.Name, env.Fields))
		}
	}
	return matches, truncated, nil
}

func toMatch(name string, fields map[string]Value) Match {
	data := make(map[string]string, len(fields))
	for k, v := range fields {
		data[k] = v.Format()
	}
	return Match{Name: name, Data: data}
}

func unionFields(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, f := range list {
			if f == "name" {
				continue
			}
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
