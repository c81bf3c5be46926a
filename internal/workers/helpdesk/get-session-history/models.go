package getsessionhistory

import "erp-helpdesk-workers/internal/models"

type Input struct {
	SessionID string `json:"sessionId"`
	Limit     int    `json:"limit"`
}

type Output struct {
	Session *models.ChatSession `json:"session"`
	Turns   []models.ChatTurn   `json:"turns"`
}
