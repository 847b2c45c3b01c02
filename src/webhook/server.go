// Package webhook receives Linear issue events and mirrors ticket state
// changes into the store.
package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"insight-agent/src/logger"
	"insight-agent/src/store"
)

// Response bodies. Linear retries any non-2xx answer, so every outcome is a 200.
const (
	MsgNotUpdate = "OK (Not an update action)"
	MsgProcessed = "Webhook processed successfully."
	MsgError     = "Error processing webhook."
)

// StatusUpdater is the part of store.Store the webhook writes to.
type StatusUpdater interface {
	UpdateTicketStatus(ctx context.Context, ticketID, status string) error
}

// Server serves the webhook endpoint.
type Server struct {
	store StatusUpdater
	log   logger.Logger
}

// event is the subset of a Linear webhook payload we read.
type event struct {
	Action string `json:"action"`
	Data   struct {
		ID    string `json:"id"`
		State *struct {
			Name string `json:"name"`
		} `json:"state"`
	} `json:"data"`
	UpdatedFrom map[string]interface{} `json:"updatedFrom"`
}

// NewServer creates a webhook server.
func NewServer(s StatusUpdater, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Server{store: s, log: log}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/webhooks/linear", s.handleLinear)
	return router
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("[Webhook] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleLinear(c *gin.Context) {
	var ev event
	if err := c.ShouldBindJSON(&ev); err != nil {
		s.log.Error("[Webhook] Invalid payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"message": MsgError})
		return
	}

	if ev.Action != "update" {
		c.JSON(http.StatusOK, gin.H{"message": MsgNotUpdate})
		return
	}

	if _, stateChanged := ev.UpdatedFrom["stateId"]; !stateChanged {
		c.JSON(http.StatusOK, gin.H{"message": MsgProcessed})
		return
	}

	if ev.Data.ID == "" || ev.Data.State == nil || ev.Data.State.Name == "" {
		c.JSON(http.StatusOK, gin.H{"message": MsgProcessed})
		return
	}

	s.log.Info("[Webhook] Updating ticket %s to status %q", ev.Data.ID, ev.Data.State.Name)
	if err := s.store.UpdateTicketStatus(c.Request.Context(), ev.Data.ID, ev.Data.State.Name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("[Webhook] Ticket %s is not tracked", ev.Data.ID)
		} else {
			s.log.Error("[Webhook] Failed to update ticket %s: %v", ev.Data.ID, err)
		}
		c.JSON(http.StatusOK, gin.H{"message": MsgError})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": MsgProcessed})
}
