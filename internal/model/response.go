package model

// ErrorResponse is the JSON error envelope every failing endpoint returns.
// Success is always false; it exists so clients can branch on one field.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
