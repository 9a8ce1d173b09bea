package donate

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
	DonationLink(ctx context.Context, req *entity.DonationRequest) (*entity.Donation, error)
}

// Post opens a Stripe checkout for a one-off donation and returns the
// hosted payment link.
func Post(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.donate"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("stripe service not available")
			render.JSON(w, r, response.Error("Stripe service not available"))
			return
		}

		var req entity.DonationRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.Int64("amount", req.Amount),
			slog.String("currency", req.Currency),
		)

		d, err := handler.DonationLink(r.Context(), &req)
		if err != nil {
			logger.Error("get donation link", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Get link: %v", err)))
			return
		}
		logger.Debug("donation link created")

		render.JSON(w, r, response.Ok(d))
	}
}
