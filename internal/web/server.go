package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/jaminalder/ndtictactoe/internal/app"
	"go.uber.org/zap"
)

// NewServer wires routes and returns an http.Handler.
func NewServer(s *app.Service, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	h := &handlers{
		svc:      s,
		tpl:      loadTemplates(),
		log:      log,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
	r.Get("/", h.index)
	r.Post("/matches", h.create)
	r.Route("/matches/{id}", func(r chi.Router) {
		r.Use(h.requireMatch)
		r.Get("/", h.view)
		r.Get("/board", h.board)
		r.Get("/events", h.events)
		r.Get("/ws", h.stream)
	})
	r.Route("/api/matches", func(r chi.Router) {
		r.Get("/", h.listJSON)
		r.Post("/", h.create)
		r.With(h.requireMatch).Get("/{id}", h.getJSON)
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
