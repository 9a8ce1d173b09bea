package count

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"agora/lib/api/response"
	"agora/lib/sl"
)

type Core interface {
	WaitlistCount(ctx context.Context) (int, error)
}

type countResponse struct {
	Count int `json:"count"`
}

// Get returns the public signup counter. The value is rounded down to a
// display bucket, never the exact row count.
func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.count"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		n, err := handler.WaitlistCount(r.Context())
		if err != nil {
			logger.Error("read count", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Count unavailable"))
			return
		}

		render.JSON(w, r, response.Ok(countResponse{Count: n}))
	}
}
