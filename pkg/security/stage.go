package security

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// Stage results reported to an Observer.
const (
	ResultSuccess  = "success"
	ResultBypassed = "bypassed"
)

// Observer is told about every request a stage handles.
type Observer interface {
	ObserveStage(stage, result string, elapsed time.Duration)
}

// Stage intercepts requests that Matcher accepts: it converts the request
// into a credential, authenticates it and hands the outcome to Success or
// the error to Failure. Requests it does not match pass through untouched.
type Stage struct {
	Name      string
	Matcher   RequestMatcher
	Converter Converter
	Providers *ProviderSet
	Success   SuccessHandler
	Failure   FailureHandler

	// Terminal stages always answer the request themselves. Non-terminal
	// stages continue the chain after a success.
	Terminal bool

	Observer Observer
}

// Middleware wraps next with the stage.
func (s *Stage) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Matcher.Matches(r) {
			if !s.Terminal {
				s.observe(ResultBypassed, 0)
			}
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		r = r.WithContext(slogx.With(r.Context(), "stage", s.Name))

		out, err := s.authenticate(r)
		if err != nil {
			s.observe(KindOf(err).String(), time.Since(start))
			s.Failure.OnFailure(w, r, err)
			return
		}

		s.observe(ResultSuccess, time.Since(start))

		cont := next
		if s.Terminal {
			cont = nil
		}
		if err := s.Success.OnSuccess(w, r, out, cont); err != nil {
			slogx.FromContext(r.Context()).Error("success handler failed", "error", err)
			s.Failure.OnFailure(w, r, ServiceError(err))
		}
	})
}

func (s *Stage) authenticate(r *http.Request) (Outcome, error) {
	cred, err := s.Converter(r)
	if err != nil {
		return nil, err
	}
	return s.Providers.Authenticate(r.Context(), cred)
}

func (s *Stage) observe(result string, elapsed time.Duration) {
	if s.Observer != nil {
		s.Observer.ObserveStage(s.Name, result, elapsed)
	}
}
