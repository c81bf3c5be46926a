package submitfeedback

type Input struct {
	MessageID    string `json:"messageId"`
	Rating       string `json:"rating"`
	FeedbackText string `json:"feedbackText"`
	Correction   string `json:"correction"`
}

type Output struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	FeedbackID string `json:"feedbackId,omitempty"`
}
