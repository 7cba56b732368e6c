package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/domain"
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
	"github.com/aussiebroadwan/tollgate/pkg/security"
	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// MeHandler returns the user behind the bearer token.
type MeHandler struct {
	UserService *service.UserService
	Location    *time.Location
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := security.PrincipalFrom(ctx)
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, security.Failure(http.StatusUnauthorized, security.MsgAbnormalRequest))
		return
	}

	user, ok := p.User.(domain.User)
	if !ok {
		var err error
		user, err = h.UserService.GetUserByEmail(ctx, p.Subject)
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, security.Failure(http.StatusNotFound, "user not found"))
			return
		}
		if err != nil {
			log.Warn("failed to load user", "subject", p.Subject, "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, security.Failure(http.StatusInternalServerError, security.MsgUnknown))
			return
		}
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, security.Success(h.userResponse(user)))
}

func (h *MeHandler) userResponse(u domain.User) authsdk.UserResponse {
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	resp := authsdk.UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Authorities: u.Authorities,
		CreatedAt:   u.CreatedAt.In(loc).Format(time.RFC3339),
	}
	if u.LastLoginAt != nil {
		resp.LastLoginAt = u.LastLoginAt.In(loc).Format(time.RFC3339)
	}
	return resp
}
