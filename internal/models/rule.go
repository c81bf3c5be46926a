// internal/models/rule.go
package models

import (
	"strings"
	"time"
)

type RuleType string

const (
	RuleTypeLowStock         RuleType = "LowStock"
	RuleTypeOverdueInvoice   RuleType = "OverdueInvoice"
	RuleTypePendingApproval  RuleType = "PendingApproval"
	RuleTypeExpiringContract RuleType = "ExpiringContract"
	RuleTypeDraftDocument    RuleType = "DraftDocument"
	RuleTypeCustom           RuleType = "Custom"
)

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Rank orders priorities; higher is more urgent. Unknown values rank below Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

type Frequency string

const (
	FrequencyRealtime Frequency = "Realtime"
	FrequencyHourly   Frequency = "Hourly"
	FrequencyDaily    Frequency = "Daily"
	FrequencyWeekly   Frequency = "Weekly"
	FrequencyMonthly  Frequency = "Monthly"
)

// Interval is the minimum time between two evaluations. Realtime is zero.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

func ParseFrequency(s string) Frequency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hourly":
		return FrequencyHourly
	case "daily":
		return FrequencyDaily
	case "weekly":
		return FrequencyWeekly
	case "monthly":
		return FrequencyMonthly
	default:
		return FrequencyRealtime
	}
}

// ProactiveRule describes a condition over one business doctype and the message raised
// for each record that satisfies it.
type ProactiveRule struct {
	ID                 int64     `json:"id" db:"id"`
	Name               string    `json:"name" db:"rule_name"`
	Type               RuleType  `json:"type" db:"rule_type"`
	TargetDoctype      string    `json:"targetDoctype" db:"target_doctype"`
	ContextIndependent bool      `json:"contextIndependent" db:"context_independent"`
	Condition          string    `json:"condition" db:"condition"`
	TemplateEN         string    `json:"templateEn" db:"message_template"`
	TemplateUR         string    `json:"templateUr,omitempty" db:"message_template_urdu"`
	Priority           Priority  `json:"priority" db:"priority"`
	Frequency          Frequency `json:"frequency" db:"check_frequency"`
	IsActive           bool      `json:"isActive" db:"is_active"`
	SortOrder          int       `json:"sortOrder" db:"sort_order"`
}

// Template returns the message template for lang, falling back to English.
func (r *ProactiveRule) Template(lang Language) string {
	if lang == LanguageUrdu && strings.TrimSpace(r.TemplateUR) != "" {
		return r.TemplateUR
	}
	return r.TemplateEN
}

// RecordLink points at the business record a suggestion is about.
type RecordLink struct {
	Doctype string `json:"doctype"`
	Docname string `json:"docname"`
}

// Suggestion is a rendered proactive alert.
type Suggestion struct {
	RuleID   int64       `json:"ruleId"`
	RuleName string      `json:"ruleName"`
	RuleType RuleType    `json:"ruleType"`
	Message  string      `json:"message"`
	Priority Priority    `json:"priority"`
	Link     *RecordLink `json:"link,omitempty"`
}

// RuleFailure reports a rule that was skipped during evaluation.
type RuleFailure struct {
	RuleID   int64  `json:"ruleId"`
	RuleName string `json:"ruleName"`
	Reason   string `json:"reason"`
}
