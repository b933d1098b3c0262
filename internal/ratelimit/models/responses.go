package models

// RateLimitExceededResponse is the 429 body returned by the general
// middleware and the login guard.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
