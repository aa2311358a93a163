// internal/handlers/view.go
package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/metrics"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type ViewHandler struct {
	viewService  *services.ViewCounterService
	pollInterval time.Duration
}

func NewViewHandler(viewService *services.ViewCounterService, pollInterval time.Duration) *ViewHandler {
	return &ViewHandler{
		viewService:  viewService,
		pollInterval: pollInterval,
	}
}

// POST /views/:resource_id
func (h *ViewHandler) IncrementViews(c *gin.Context) {
	resourceID := c.Param("resource_id")

	count, err := h.viewService.Increment(c.Request.Context(), resourceID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"resource_id": resourceID,
		"count":       count,
	})
}

// GET /views/:resource_id
func (h *ViewHandler) GetViews(c *gin.Context) {
	resourceID := c.Param("resource_id")

	count, err := h.viewService.Read(c.Request.Context(), resourceID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"resource_id": resourceID,
		"count":       count,
	})
}

// GET /views/:resource_id/stream
//
// Server-sent events carrying the count whenever it changes. The poller is tied to the
// request context and stops when the client disconnects. The stream outlives the
// server's write timeout, so the connection's write deadline is lifted first.
func (h *ViewHandler) StreamViews(c *gin.Context) {
	resourceID := c.Param("resource_id")
	ctx := c.Request.Context()

	if _, err := h.viewService.Read(ctx, resourceID); err != nil {
		respondError(c, err)
		return
	}

	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		logrus.WithError(err).WithField("resource_id", resourceID).Debug("Could not clear write deadline for view stream")
	}

	// Holds only the newest count; the poller is the single producer
	updates := make(chan int64, 1)
	poller := services.NewViewPoller(h.viewService, resourceID, h.pollInterval, func(count int64) {
		select {
		case <-updates:
		default:
		}
		updates <- count
	})

	poller.Start(ctx)
	defer poller.Stop()

	metrics.ActiveViewStreams.Inc()
	defer metrics.ActiveViewStreams.Dec()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	last := int64(-1)
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case count := <-updates:
			if count != last {
				c.SSEvent("views", gin.H{
					"resource_id": resourceID,
					"count":       count,
				})
				last = count
			}
			return true
		}
	})
}
