/*
Package authsdk provides a client SDK for the tollgate authentication service.

# SDKClient vs Session

  - SDKClient: unauthenticated operations and the login flows
  - Session: authenticated operations with automatic access token refresh

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Load balancer health check
	status, err := client.Ping(ctx)

	// Email and password login
	session, err := client.Login(ctx, "alice@example.com", "correct-horse")

	// Or sign in with an upstream authorization code
	session, err := client.LoginWithOAuth(ctx, "kakao", code)

	// The current user; the access token is refreshed when close to expiry
	me, err := session.Me(ctx)

# Tokens

Access tokens are returned in the response body with their expiry as local
wall time in the service zone (Asia/Seoul by default). Refresh tokens only
travel in the refresh_token cookie. Refreshing never rotates the refresh
token; once it expires the service answers with null tokens and the SDK
returns ErrSessionExpired.

# Errors

Failed envelopes come back as *APIError carrying the HTTP status and the
service message. IsUnauthorized and IsRateLimited classify the common cases.
*/
package authsdk
