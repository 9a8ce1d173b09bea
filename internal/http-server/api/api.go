package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"agora/internal/config"
	"agora/internal/http-server/handlers/count"
	"agora/internal/http-server/handlers/donate"
	"agora/internal/http-server/handlers/errors"
	"agora/internal/http-server/handlers/identity"
	"agora/internal/http-server/handlers/invite"
	"agora/internal/http-server/handlers/signup"
	"agora/internal/http-server/handlers/status"
	"agora/internal/http-server/handlers/stripehandler"
	"agora/internal/http-server/middleware/authenticate"
	"agora/internal/http-server/middleware/timeout"
	"agora/internal/monitoring"
	"agora/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	signup.Core
	status.Core
	count.Core
	invite.Core
	donate.Core
	identity.Core
	stripehandler.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(5))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Post("/signup", signup.Post(log, handler))
	router.Get("/signup/{id}", status.Get(log, handler))
	router.Get("/waitlist/count", count.Get(log, handler))
	router.Post("/invite/accept", invite.Accept(log, handler))
	router.Post("/donate", donate.Post(log, handler))

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(authenticate.New(log, handler))
		rootApi.Post("/waitlist/{id}/invite", invite.Send(log, handler))
		rootApi.Post("/identity/session", identity.Post(log, handler))
	})
	router.Route("/webhook", func(rootWH chi.Router) {
		rootWH.Post("/event", stripehandler.Event(log, handler))
	})
	router.Method(http.MethodGet, "/metrics", monitoring.Handler())

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
