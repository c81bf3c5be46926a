package getproactivesuggestions

import "erp-helpdesk-workers/internal/models"

type Input struct {
	Doctype  string `json:"doctype"`
	Docname  string `json:"docname"`
	Language string `json:"language"`
}

type Output struct {
	Suggestions []models.Suggestion  `json:"suggestions"`
	FailedRules []models.RuleFailure `json:"failedRules"`
	Warnings    []models.RuleFailure `json:"warnings"`
}
