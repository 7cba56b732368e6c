package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/aussiebroadwan/tollgate/internal/auth/oauth/kakao"
	"github.com/aussiebroadwan/tollgate/pkg/cryptox"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/security"
)

// Config is loaded from an optional YAML file with environment variables
// layered on top.
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"dev" validate:"oneof=dev test staging prod"`
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Security  SecurityConfig  `yaml:"security"`
	Password  PasswordConfig  `yaml:"password"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json" validate:"oneof=json text"`
}

type HTTPConfig struct {
	Port                int           `yaml:"port" env:"PORT" env-default:"8080" validate:"min=1,max=65535"`
	ShutdownGracePeriod time.Duration `yaml:"shutdown_grace_period" env:"SHUTDOWN_GRACE_PERIOD" env-default:"10s" validate:"gt=0"`
}

type DatabaseConfig struct {
	File string `yaml:"file" env:"AUTH_DATABASE_FILE" env-default:"auth.db" validate:"required"`
}

type JWTConfig struct {
	Secret     string        `yaml:"secret" env:"JWT_SECRET" env-required:"true" validate:"min=32"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL" env-default:"30m" validate:"gt=0"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL" env-default:"336h" validate:"gt=0,gtfield=AccessTTL"`
	Zone       string        `yaml:"zone" env:"JWT_ZONE" env-default:"Asia/Seoul" validate:"required,timezone"`
}

type LoginConfig struct {
	Method        string `yaml:"method" env:"SECURITY_LOGIN_METHOD" env-default:"POST" validate:"required"`
	Path          string `yaml:"path" env:"SECURITY_LOGIN_PATH" env-default:"/v1/auth/login" validate:"required,startswith=/"`
	UsernameParam string `yaml:"username_param" env:"SECURITY_LOGIN_USERNAME_PARAM" env-default:"email" validate:"required"`
	PasswordParam string `yaml:"password_param" env:"SECURITY_LOGIN_PASSWORD_PARAM" env-default:"password" validate:"required"`
}

type OAuthEndpointConfig struct {
	Method string `yaml:"method" env:"SECURITY_OAUTH_METHOD" env-default:"POST" validate:"required"`
	Path   string `yaml:"path" env:"SECURITY_OAUTH_PATH" env-default:"/v1/auth/oauth" validate:"required,startswith=/"`
}

type RefreshConfig struct {
	Method     string `yaml:"method" env:"SECURITY_REFRESH_METHOD" env-default:"POST" validate:"required"`
	Path       string `yaml:"path" env:"SECURITY_REFRESH_PATH" env-default:"/v1/auth/refresh" validate:"required,startswith=/"`
	CookieName string `yaml:"cookie_name" env:"SECURITY_REFRESH_COOKIE_NAME" env-default:"refresh_token" validate:"required"`
}

type AuthorizationConfig struct {
	BearerPrefix string `yaml:"bearer_prefix" env:"SECURITY_BEARER_PREFIX" env-default:"Bearer" validate:"required"`
}

type SecurityConfig struct {
	Authentication LoginConfig         `yaml:"authentication"`
	OAuth          OAuthEndpointConfig `yaml:"oauth"`
	Refresh        RefreshConfig       `yaml:"refresh"`
	Authorization  AuthorizationConfig `yaml:"authorization"`

	// Permit lists requests that skip authorization. Leaving it out of the
	// YAML applies DefaultPermit; an explicit empty list permits nothing.
	Permit []security.PermitRule `yaml:"permit" validate:"dive"`

	MockAuthorization bool   `yaml:"mock_authorization" env:"SECURITY_MOCK_AUTHORIZATION" env-default:"false"`
	MockSubject       string `yaml:"mock_subject" env:"SECURITY_MOCK_SUBJECT" validate:"required_if=MockAuthorization true"`
}

type PasswordConfig struct {
	Algorithm  string `yaml:"algorithm" env:"PASSWORD_ALGORITHM" env-default:"bcrypt" validate:"oneof=bcrypt argon2id"`
	BcryptCost int    `yaml:"bcrypt_cost" env:"PASSWORD_BCRYPT_COST" env-default:"10" validate:"min=4,max=31"`
	PepperFile string `yaml:"pepper_file" env:"PASSWORD_PEPPER_FILE"`
}

type KakaoConfig struct {
	ClientID     string        `yaml:"client_id" env:"KAKAO_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"KAKAO_CLIENT_SECRET"`
	RedirectURI  string        `yaml:"redirect_uri" env:"KAKAO_REDIRECT_URI" validate:"required_with=ClientID"`
	AuthURL      string        `yaml:"auth_url" env:"KAKAO_AUTH_URL" env-default:"https://kauth.kakao.com" validate:"url"`
	APIURL       string        `yaml:"api_url" env:"KAKAO_API_URL" env-default:"https://kapi.kakao.com" validate:"url"`
	Timeout      time.Duration `yaml:"timeout" env:"KAKAO_TIMEOUT" env-default:"5s" validate:"gt=0"`
}

type OAuthConfig struct {
	Kakao KakaoConfig `yaml:"kakao"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests" env:"RATELIMIT_AUTH_REQUESTS" env-default:"5" validate:"min=1"`
	Window   time.Duration `yaml:"window" env:"RATELIMIT_AUTH_WINDOW" env-default:"1m" validate:"gt=0"`
	Burst    int           `yaml:"burst" env:"RATELIMIT_AUTH_BURST" env-default:"5" validate:"min=1"`
}

type BootstrapConfig struct {
	AdminEmail    string `yaml:"admin_email" env:"BOOTSTRAP_ADMIN_EMAIL" validate:"omitempty,email"`
	AdminName     string `yaml:"admin_name" env:"BOOTSTRAP_ADMIN_NAME"`
	AdminPassword string `yaml:"admin_password" env:"BOOTSTRAP_ADMIN_PASSWORD" validate:"omitempty,min=8"`
}

// DefaultPermit keeps the operational endpoints reachable without a token.
var DefaultPermit = []security.PermitRule{
	{Method: "GET", Pattern: "/elb-health"},
	{Method: "GET", Pattern: "/version"},
	{Method: "GET", Pattern: "/livez"},
	{Method: "GET", Pattern: "/readyz"},
	{Method: "GET", Pattern: "/metrics"},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig reads path, falling back to CONFIG_PATH and then to the
// environment alone. The result is validated.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %q: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read env: %w", err)
	}

	if cfg.Security.Permit == nil {
		cfg.Security.Permit = DefaultPermit
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct constraints and the cross-field rules tags cannot
// express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Security.MockAuthorization && c.Env == "prod" {
		return errors.New("invalid config: mock authorization cannot be enabled in prod")
	}
	return nil
}

// CodecConfig derives the token codec settings.
func (c Config) CodecConfig() (jwtx.CodecConfig, error) {
	loc, err := time.LoadLocation(c.JWT.Zone)
	if err != nil {
		return jwtx.CodecConfig{}, fmt.Errorf("load zone %q: %w", c.JWT.Zone, err)
	}
	return jwtx.CodecConfig{
		Secret:     []byte(c.JWT.Secret),
		AccessTTL:  c.JWT.AccessTTL,
		RefreshTTL: c.JWT.RefreshTTL,
		Location:   loc,
	}, nil
}

// PipelineConfig derives the security pipeline settings.
func (c Config) PipelineConfig() security.Config {
	s := c.Security
	cfg := security.Config{
		Login:         security.Endpoint{Method: s.Authentication.Method, Path: s.Authentication.Path},
		OAuth:         security.Endpoint{Method: s.OAuth.Method, Path: s.OAuth.Path},
		Refresh:       security.Endpoint{Method: s.Refresh.Method, Path: s.Refresh.Path},
		UsernameParam: s.Authentication.UsernameParam,
		PasswordParam: s.Authentication.PasswordParam,
		RefreshCookie: s.Refresh.CookieName,
		BearerPrefix:  s.Authorization.BearerPrefix,
		Permit:        s.Permit,
	}
	if s.MockAuthorization {
		cfg.MockSubject = s.MockSubject
	}
	return cfg
}

// Hasher builds the password hasher, loading the pepper when configured.
func (c Config) Hasher() (*cryptox.Hasher, error) {
	var pepper string
	if c.Password.PepperFile != "" {
		var err error
		pepper, err = cryptox.LoadOrGeneratePepper(c.Password.PepperFile)
		if err != nil {
			return nil, fmt.Errorf("load pepper: %w", err)
		}
	}
	return cryptox.NewHasher(c.Password.Algorithm, c.Password.BcryptCost, pepper)
}

// KakaoConfig returns the Kakao client settings and whether Kakao is enabled.
func (c Config) KakaoConfig() (kakao.Config, bool) {
	k := c.OAuth.Kakao
	return kakao.Config{
		ClientID:     k.ClientID,
		ClientSecret: k.ClientSecret,
		RedirectURI:  k.RedirectURI,
		AuthURL:      k.AuthURL,
		APIURL:       k.APIURL,
		Timeout:      k.Timeout,
	}, k.ClientID != ""
}
