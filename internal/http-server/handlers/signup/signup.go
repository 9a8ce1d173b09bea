package signup

import (
	"context"
	"errors"
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
	SignupWaitlist(ctx context.Context, email string) (*entity.WaitlistEntry, int, error)
}

type signupResponse struct {
	Id         string `json:"id"`
	Email      string `json:"email"`
	Position   int    `json:"position"`
	InviteSent bool   `json:"invite_sent"`
}

// Post handles the public waitlist signup. A duplicate email lands on the
// existing entry's status rather than an error.
func Post(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.signup"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.SignupRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.Email(req.Email))

		e, position, err := handler.SignupWaitlist(r.Context(), req.Email)
		if errors.Is(err, entity.ErrEmptyEmail) || errors.Is(err, entity.ErrInvalidEmail) {
			logger.Debug("rejected signup", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		if err != nil {
			logger.Error("signup", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Signup failed"))
			return
		}
		logger.With(slog.String("id", e.Id), slog.Int("position", position)).Debug("signup handled")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(signupResponse{
			Id:         e.Id,
			Email:      e.Email,
			Position:   position,
			InviteSent: e.IsInvited(),
		}))
	}
}
