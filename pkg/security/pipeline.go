package security

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// Stage names, also used as metric labels.
const (
	StageLogin         = "login"
	StageOAuth         = "oauth"
	StageRefresh       = "refresh"
	StageAuthorization = "authorization"
)

// Endpoint binds a stage to one method and path.
type Endpoint struct {
	Method string
	Path   string
}

// Config is the read-only pipeline configuration fixed at startup.
type Config struct {
	Login   Endpoint
	OAuth   Endpoint
	Refresh Endpoint

	UsernameParam string
	PasswordParam string
	RefreshCookie string
	BearerPrefix  string

	Permit []PermitRule

	// MockSubject, when set, replaces bearer token verification with a
	// fixed principal. Development only.
	MockSubject string
}

// Dependencies are the collaborators the stages call into.
type Dependencies struct {
	Tokens     *jwtx.Codec
	Users      UserLoader
	OAuthUsers OAuthUserLoader // optional; without it the oauth stage is not built
	LastLogin  LastLoginRecorder
	Passwords  PasswordMatcher
	Observer   Observer
}

// Pipeline runs LOGIN -> OAUTH -> REFRESH -> AUTHORIZATION in that order.
// The first three answer matching requests themselves; authorization
// decorates the request with a principal and lets it through.
type Pipeline struct {
	Login         *Stage
	OAuth         *Stage
	Refresh       *Stage
	Authorization *Stage
}

// NewPipeline wires the four stages from cfg and deps.
func NewPipeline(cfg Config, deps Dependencies) (*Pipeline, error) {
	if deps.Tokens == nil || deps.Users == nil || deps.Passwords == nil {
		return nil, errors.New("security: tokens, users and passwords are required")
	}

	loc := deps.Tokens.Location()
	tokenSuccess := &TokenSuccessHandler{
		CookieName: cfg.RefreshCookie,
		LastLogin:  deps.LastLogin,
		Location:   loc,
		Now:        deps.Tokens.Now,
	}
	authnFailure := FailureResponder{Family: AuthenticationFamily}

	loginMatcher, err := PathMatcher(cfg.Login.Method, cfg.Login.Path)
	if err != nil {
		return nil, err
	}
	loginProviders, err := NewProviderSet(&PasswordLoginProvider{
		Users:     deps.Users,
		Passwords: deps.Passwords,
		Tokens:    deps.Tokens,
	})
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		Login: &Stage{
			Name:      StageLogin,
			Matcher:   loginMatcher,
			Converter: UsernamePasswordConverter(cfg.UsernameParam, cfg.PasswordParam),
			Providers: loginProviders,
			Success:   tokenSuccess,
			Failure:   authnFailure,
			Terminal:  true,
			Observer:  deps.Observer,
		},
	}

	if deps.OAuthUsers != nil {
		oauthMatcher, err := PathMatcher(cfg.OAuth.Method, cfg.OAuth.Path)
		if err != nil {
			return nil, err
		}
		p.OAuth = &Stage{
			Name:      StageOAuth,
			Matcher:   oauthMatcher,
			Converter: OAuthCodeConverter(),
			Providers: MustProviderSet(&OAuthLoginProvider{
				Identities: deps.OAuthUsers,
				Tokens:     deps.Tokens,
			}),
			Success:  tokenSuccess,
			Failure:  authnFailure,
			Terminal: true,
			Observer: deps.Observer,
		}
	}

	refreshMatcher, err := PathMatcher(cfg.Refresh.Method, cfg.Refresh.Path)
	if err != nil {
		return nil, err
	}
	p.Refresh = &Stage{
		Name:      StageRefresh,
		Matcher:   refreshMatcher,
		Converter: RefreshTokenConverter(cfg.RefreshCookie),
		Providers: MustProviderSet(&RefreshRotationProvider{
			Users:  deps.Users,
			Tokens: deps.Tokens,
		}),
		Success:  tokenSuccess,
		Failure:  authnFailure,
		Terminal: true,
		Observer: deps.Observer,
	}

	permit, err := NewPermitMatcher(cfg.Permit)
	if err != nil {
		return nil, err
	}
	var access Provider = &AccessVerificationProvider{Users: deps.Users, Tokens: deps.Tokens}
	if cfg.MockSubject != "" {
		access = &MockAccessProvider{Users: deps.Users, Subject: cfg.MockSubject}
	}
	p.Authorization = &Stage{
		Name:      StageAuthorization,
		Matcher:   Negate(permit),
		Converter: BearerAccessTokenConverter(cfg.BearerPrefix),
		Providers: MustProviderSet(access),
		Success:   AuthorizationSuccessHandler{},
		Failure:   FailureResponder{Family: AuthorizationFamily},
		Observer:  deps.Observer,
	}

	return p, nil
}

func (p *Pipeline) stages() []*Stage {
	var out []*Stage
	for _, s := range []*Stage{p.Login, p.OAuth, p.Refresh, p.Authorization} {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Handler puts the pipeline in front of next.
func (p *Pipeline) Handler(next http.Handler) http.Handler {
	stages := p.stages()
	mws := make([]httpx.Middleware, 0, len(stages))
	for _, s := range stages {
		mws = append(mws, s.Middleware)
	}
	return httpx.Chain(next, mws...)
}

// AuthenticationMatcher matches requests aimed at any terminal stage.
func (p *Pipeline) AuthenticationMatcher() RequestMatcher {
	var ms []RequestMatcher
	for _, s := range p.stages() {
		if s.Terminal {
			ms = append(ms, s.Matcher)
		}
	}
	return Or(ms...)
}

// String lists the stage order, handy in startup logs.
func (p *Pipeline) String() string {
	names := make([]string, 0, 4)
	for _, s := range p.stages() {
		names = append(names, s.Name)
	}
	return fmt.Sprintf("pipeline(%s)", strings.Join(names, " -> "))
}
