package security

// CredentialKind names a credential variant for provider dispatch.
type CredentialKind int

const (
	CredentialUsernamePassword CredentialKind = iota + 1
	CredentialOAuthCode
	CredentialRefreshToken
	CredentialBearerAccessToken
)

var credentialKinds = []CredentialKind{
	CredentialUsernamePassword,
	CredentialOAuthCode,
	CredentialRefreshToken,
	CredentialBearerAccessToken,
}

func (k CredentialKind) String() string {
	switch k {
	case CredentialUsernamePassword:
		return "username_password"
	case CredentialOAuthCode:
		return "oauth_code"
	case CredentialRefreshToken:
		return "refresh_token"
	case CredentialBearerAccessToken:
		return "bearer_access_token"
	default:
		return "unknown"
	}
}

// Credential is an unverified claim of identity extracted from one request.
// The set of implementations is closed.
type Credential interface {
	Kind() CredentialKind
	credential()
}

type UsernamePassword struct {
	Username string
	Password string
}

type OAuthCode struct {
	Provider string
	Code     string
}

type RefreshToken struct {
	Token string
}

// BearerAccessToken holds the raw token from the Authorization header. Token
// is empty when the header was absent or used another scheme.
type BearerAccessToken struct {
	Token string
}

func (UsernamePassword) Kind() CredentialKind  { return CredentialUsernamePassword }
func (OAuthCode) Kind() CredentialKind         { return CredentialOAuthCode }
func (RefreshToken) Kind() CredentialKind      { return CredentialRefreshToken }
func (BearerAccessToken) Kind() CredentialKind { return CredentialBearerAccessToken }

func (UsernamePassword) credential()  {}
func (OAuthCode) credential()         {}
func (RefreshToken) credential()      {}
func (BearerAccessToken) credential() {}

// String keeps secrets out of logs.
func (c UsernamePassword) String() string { return "UsernamePassword{" + c.Username + ", ****}" }
func (c OAuthCode) String() string        { return "OAuthCode{" + c.Provider + ", ****}" }
func (RefreshToken) String() string       { return "RefreshToken{****}" }
func (BearerAccessToken) String() string  { return "BearerAccessToken{****}" }
