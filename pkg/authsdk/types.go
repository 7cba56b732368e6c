package authsdk

// ============================================================================
// Envelope
// ============================================================================

// Envelope is the JSON wrapper around every auth endpoint response.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Content T      `json:"content,omitempty"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenContent is the content of login, oauth and refresh responses. Both
// fields are null when the refresh token has expired. The refresh token
// itself only travels in a cookie.
type TokenContent struct {
	AccessToken *string `json:"accessToken"`

	// AccessTokenExpiresIn is the expiry as local wall time in the server's
	// zone, formatted "2006-01-02 15:04:05".
	AccessTokenExpiresIn *string `json:"accessTokenExpiresIn"`
}

// OAuthLoginRequest is the JSON body of the oauth login endpoint.
type OAuthLoginRequest struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
}

// ============================================================================
// User Types
// ============================================================================

// UserResponse is returned by GET /v1/users/me.
type UserResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Authorities []string `json:"authorities"`
	LastLoginAt string   `json:"lastLoginAt,omitempty"`
	CreatedAt   string   `json:"createdAt"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`
}
