package security_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/aussiebroadwan/tollgate/pkg/security"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newCodec(t *testing.T, clk *clock) *jwtx.Codec {
	t.Helper()
	codec, err := jwtx.NewCodec(jwtx.CodecConfig{
		Secret:     testSecret,
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Now:        clk.Now,
	})
	require.NoError(t, err)
	return codec
}

// fakeUsers is an in-memory user lookup that also records last logins.
type fakeUsers struct {
	mu        sync.Mutex
	accounts  map[string]security.Account
	err       error
	lookups   int
	lastLogin map[string]time.Time
}

func newFakeUsers(accounts ...security.Account) *fakeUsers {
	f := &fakeUsers{
		accounts:  make(map[string]security.Account),
		lastLogin: make(map[string]time.Time),
	}
	for _, a := range accounts {
		f.accounts[a.Username] = a
	}
	return f
}

func (f *fakeUsers) FindUserByIdentifier(_ context.Context, id string) (*security.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, security.ErrUserNotFound
	}
	return &a, nil
}

func (f *fakeUsers) RecordLastLogin(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLogin[id] = at
	return nil
}

func (f *fakeUsers) Lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

func (f *fakeUsers) LastLogin(id string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.lastLogin[id]
	return at, ok
}

// plainPasswords treats the stored hash as the password itself.
type plainPasswords struct{}

func (plainPasswords) Matches(raw, encoded string) bool { return raw == encoded }

// fakeIdentities resolves every code to the configured account.
type fakeIdentities struct {
	account *security.Account
	err     error
}

func (f fakeIdentities) FindOrCreateExternalIdentity(context.Context, string, string) (*security.Account, error) {
	return f.account, f.err
}

const (
	userEmail    = "user@x.com"
	userPassword = "correct-horse"
)

func activeUser() security.Account {
	return security.Account{
		Username:     userEmail,
		PasswordHash: userPassword,
		Authorities:  []string{"ROLE_USER"},
		User:         "user-record",
	}
}

func formRequest(method, target string, values url.Values) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func refreshCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
