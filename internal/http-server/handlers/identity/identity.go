package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"agora/entity"
	"agora/lib/api/response"
	"agora/lib/sl"
)

type Core interface {
	IdentitySession(ctx context.Context, email string) (*entity.IdentityVerification, error)
}

// Post opens a Stripe identity verification session. The client secret in
// the response is single-use and never persisted.
func Post(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.identity"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("stripe service not available")
			render.JSON(w, r, response.Error("Stripe service not available"))
			return
		}

		var req entity.IdentityRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.Email(req.Email))

		v, err := handler.IdentitySession(r.Context(), req.Email)
		if err != nil {
			logger.Error("open identity session", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Open session: %v", err)))
			return
		}
		logger.With(slog.String("session_id", v.SessionId)).Debug("identity session opened")

		render.JSON(w, r, response.Ok(v))
	}
}
