package middleware

// Error messages middleware writes into the detail field of error responses.
const (
	detailInternal          = "An internal error occurred"
	detailRateLimitExceeded = "Too many requests"
	detailRequestTimeout    = "Request timeout"
	detailNotAuthenticated  = "Not authenticated"
)
