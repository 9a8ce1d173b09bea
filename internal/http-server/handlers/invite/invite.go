package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"agora/entity"
	"agora/lib/api/response"
	"agora/lib/sl"
)

type Core interface {
	SendInvite(ctx context.Context, id string) (string, error)
	AcceptInvite(ctx context.Context, email, code string) (*entity.WaitlistEntry, error)
}

type sentResponse struct {
	Id         string `json:"id"`
	InviteCode string `json:"invite_code"`
}

type acceptedResponse struct {
	Id             string `json:"id"`
	Email          string `json:"email"`
	InviteAccepted bool   `json:"invite_accepted"`
}

// Send dispatches the invite email for an entry. The operation is retryable:
// a failed send leaves the entry untouched.
func Send(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.invite"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Missing entry id"))
			return
		}
		logger = logger.With(slog.String("id", id))

		code, err := handler.SendInvite(r.Context(), id)
		if errors.Is(err, entity.ErrNotFound) {
			logger.Debug("entry not found")
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("Entry not found"))
			return
		}
		if errors.Is(err, entity.ErrInviteSendFailed) {
			logger.Error("send invite", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error("Invite delivery failed"))
			return
		}
		if err != nil {
			logger.Error("send invite", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Send invite failed"))
			return
		}
		logger.Info("invite dispatched")

		render.JSON(w, r, response.Ok(sentResponse{Id: id, InviteCode: code}))
	}
}

// Accept completes registration for an invited signup.
func Accept(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.invite"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.AcceptRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.Email(req.Email))

		e, err := handler.AcceptInvite(r.Context(), req.Email, req.InviteCode)
		if errors.Is(err, entity.ErrNotFound) {
			logger.Debug("no matching invite")
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("No matching invite"))
			return
		}
		if err != nil {
			logger.Error("accept invite", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Accept failed"))
			return
		}
		logger.With(slog.String("id", e.Id)).Info("invite accepted")

		render.JSON(w, r, response.Ok(acceptedResponse{
			Id:             e.Id,
			Email:          e.Email,
			InviteAccepted: e.IsAccepted(),
		}))
	}
}
