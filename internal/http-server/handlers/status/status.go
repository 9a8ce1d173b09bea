package status

import (
	"context"
	"errors"
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
	WaitlistStatus(ctx context.Context, id string) (*entity.WaitlistEntry, int, error)
}

type statusResponse struct {
	Id             string `json:"id"`
	Email          string `json:"email"`
	Position       int    `json:"position"`
	InviteSent     bool   `json:"invite_sent"`
	InviteAccepted bool   `json:"invite_accepted"`
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.status"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Missing entry id"))
			return
		}
		logger = logger.With(slog.String("id", id))

		e, position, err := handler.WaitlistStatus(r.Context(), id)
		if errors.Is(err, entity.ErrNotFound) {
			logger.Debug("entry not found")
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("Entry not found"))
			return
		}
		if err != nil {
			logger.Error("read status", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Status lookup failed"))
			return
		}

		render.JSON(w, r, response.Ok(statusResponse{
			Id:             e.Id,
			Email:          e.Email,
			Position:       position,
			InviteSent:     e.IsInvited(),
			InviteAccepted: e.IsAccepted(),
		}))
	}
}
