// Package webhook exposes the HTTP surface that Telegram delivers
// updates to. It decodes, wraps and enqueues; all processing happens
// behind the queue.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mymmrac/telego"

	"github.com/relayforge/topicrelay/pkg/logger"
	"github.com/relayforge/topicrelay/pkg/queue"
)

// AdminPath and BotPath build the webhook paths registered with
// Telegram for the admin bot and a tenant bot.
func AdminPath(token string) string {
	return "/webhook/admin/" + token
}

func BotPath(token string) string {
	return "/webhook/bot/" + token
}

// Server receives webhook deliveries and publishes them to the update
// queue. Replies are always 200 so Telegram never retries an update we
// chose to drop.
type Server struct {
	addr       string
	adminToken string
	q          *queue.Queue
	httpServer *http.Server
}

func NewServer(host string, port int, adminToken string, q *queue.Queue) *Server {
	s := &Server{
		addr:       fmt.Sprintf("%s:%d", host, port),
		adminToken: adminToken,
		q:          q,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Post("/webhook/admin/{token}", s.handleAdmin)
	r.Post("/webhook/bot/{token}", s.handleBot)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	logger.InfoCF("webhook", "Listening", map[string]any{"addr": s.addr})
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token != s.adminToken {
		// Wrong admin path is indistinguishable from a missing one.
		http.NotFound(w, r)
		return
	}
	s.enqueue(w, r, token, true)
}

func (s *Server) handleBot(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		http.NotFound(w, r)
		return
	}
	s.enqueue(w, r, token, false)
}

// enqueue decodes the update and hands it to the queue. Malformed
// bodies get 200 too; retrying them would only replay the garbage.
func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, token string, admin bool) {
	var upd telego.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		logger.DebugCF("webhook", "Undecodable update", map[string]any{
			"admin": admin,
			"error": err.Error(),
		})
		w.WriteHeader(http.StatusOK)
		return
	}

	env := queue.Envelope{
		Token:      token,
		Admin:      admin,
		Update:     upd,
		RequestID:  uuid.NewString(),
		ReceivedAt: time.Now(),
	}
	if err := s.q.Publish(r.Context(), env); err != nil {
		logger.WarnCF("webhook", "Queue rejected update", map[string]any{
			"request_id": env.RequestID,
			"error":      err.Error(),
		})
		// Let Telegram retry once the queue drains.
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
