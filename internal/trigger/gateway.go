// Package trigger is the decoupling point between "a job was enqueued" and
// "the worker is running". The gateway only signals: it fires one request at
// the worker's drain endpoint and reports success to its own caller without
// waiting for delivery. A downstream failure is logged, never surfaced -
// that asymmetry is a deliberate availability/latency trade-off, not an
// oversight. Enqueue callers poll the job record for the real outcome.
package trigger

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Gateway fires fire-and-forget wake calls at the worker.
type Gateway struct {
	wakeURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewGateway creates a gateway targeting the given worker wake URL. An empty
// URL is allowed at construction; POST requests then fail with a local
// configuration error.
func NewGateway(wakeURL string, timeout time.Duration, logger *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{
		wakeURL: wakeURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Preflight answers the CORS pre-flight probe with 200 and no side effect.
func (g *Gateway) Preflight(c *gin.Context) {
	setCORSHeaders(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "ok",
	})
}

// Fire dispatches the wake call. The only failure its caller can see is a
// local configuration error (missing wake URL); once the downstream request
// is launched the response is 200 regardless of whether the worker is
// reachable.
func (g *Gateway) Fire(c *gin.Context) {
	setCORSHeaders(c)

	if g.wakeURL == "" {
		g.logger.Error("Wake call rejected - worker wake URL is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "worker wake URL is not configured",
		})
		return
	}

	go g.send()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "wake signal dispatched",
	})
}

// send performs the downstream call on its own context so it survives the
// gateway's already-answered request.
func (g *Gateway) send() {
	ctx, cancel := context.WithTimeout(context.Background(), g.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.wakeURL, nil)
	if err != nil {
		g.logger.Error("Failed to build wake request",
			slog.String("error", err.Error()),
		)
		return
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("Wake delivery failed",
			slog.String("wake_url", g.wakeURL),
			slog.String("error", err.Error()),
		)
		return
	}
	defer resp.Body.Close()

	g.logger.Info("Wake delivered",
		slog.String("wake_url", g.wakeURL),
		slog.Int("status", resp.StatusCode),
	)
}

func setCORSHeaders(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}
