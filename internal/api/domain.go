package api

// ErrorBody is the shape written by ErrorResponse.
type ErrorBody struct {
	Success   bool   `json:"success" example:"false"`
	Error     string `json:"error" example:"Sorry, I couldn't find results for that right now."`
	RequestID string `json:"request_id,omitempty" example:"host/abc123-000001"`
}
