// Package server exposes the Telegram webhook and the read-only dashboard API.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/petasbytes/snapbooks/internal/invoice"
	"github.com/petasbytes/snapbooks/internal/telegram"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxWebhookBody   = 1 << 20
	shutdownTimeout  = 10 * time.Second
)

// Webhook consumes raw Telegram update bodies.
type Webhook interface {
	HandleUpdate(ctx context.Context, body []byte) error
}

// Server wires the HTTP routes to their collaborators. Nil collaborators
// leave their routes answering 503.
type Server struct {
	Webhook Webhook
	Archive *invoice.Archive
	Logger  *slog.Logger

	// AllowOrigins lists dashboard origins for CORS; empty allows all.
	AllowOrigins []string
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Handler builds the gin engine.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	cc := cors.DefaultConfig()
	if len(s.AllowOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = s.AllowOrigins
	}
	cc.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	r.Use(cors.New(cc))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "SnapBooks"})
	})
	r.POST("/telegram/webhook", s.webhook)

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "SnapBooks API is running"})
	})
	api.GET("/invoices", s.listInvoices)
	api.GET("/invoices/:id", s.getInvoice)
	api.GET("/stats", s.stats)
	return r
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.logger().Info("server_listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger().Info("server_stopped")
	return nil
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger().Debug("http_request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) webhook(c *gin.Context) {
	if s.Webhook == nil {
		c.JSON(http.StatusServiceUnavailable, fail("telegram is not configured"))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, fail("body too large"))
		return
	}
	if err := s.Webhook.HandleUpdate(c.Request.Context(), body); err != nil {
		s.logger().Warn("webhook_rejected", "error", err)
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}
	// Telegram only needs a 2xx; work continues in the background.
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) listInvoices(c *gin.Context) {
	if s.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, fail("invoice archive is not configured"))
		return
	}
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, fail("limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}
	userID := c.Query("user_id")
	if userID == "" {
		userID = c.Query("userId")
	}

	recs, err := s.Archive.List(c.Request.Context(), limit, userID)
	if err != nil {
		s.logger().Error("invoices_fetch_error", "error", err)
		c.JSON(http.StatusInternalServerError, fail("could not list invoices"))
		return
	}
	s.logger().Info("invoices_fetched", "count", len(recs), "user_id", userID)
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(recs), "invoices": recs})
}

func (s *Server) getInvoice(c *gin.Context) {
	if s.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, fail("invoice archive is not configured"))
		return
	}
	id := c.Param("id")
	rec, err := s.Archive.Get(c.Request.Context(), id)
	if errors.Is(err, invoice.ErrNotFound) {
		c.JSON(http.StatusNotFound, fail("Invoice not found"))
		return
	}
	if err != nil {
		s.logger().Error("invoice_fetch_error", "invoice_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, fail("could not load invoice"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invoice": rec})
}

func (s *Server) stats(c *gin.Context) {
	if s.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, fail("invoice archive is not configured"))
		return
	}
	st, err := s.Archive.Stats(c.Request.Context())
	if err != nil {
		s.logger().Error("stats_fetch_error", "error", err)
		c.JSON(http.StatusInternalServerError, fail("could not compute stats"))
		return
	}
	s.logger().Info("stats_fetched", "total_invoices", st.TotalInvoices, "total_revenue", st.TotalRevenue)
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": st})
}

func fail(msg string) gin.H {
	return gin.H{"success": false, "error": msg}
}

var _ Webhook = (*telegram.Handler)(nil)
