package models

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// DetailsResponse is a plain confirmation message
type DetailsResponse struct {
	Details string `json:"details"`
}

// LoginResponse carries an issued access token
type LoginResponse struct {
	Access    string `json:"access"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// CheckoutSession is the gateway session handle returned to the buyer
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
