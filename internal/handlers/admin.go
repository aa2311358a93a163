// internal/handlers/admin.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/utils"
)

const defaultReportWindow = 30 * 24 * time.Hour

type AdminHandler struct {
	reportService *services.ReportService
	now           func() time.Time
}

func NewAdminHandler(reportService *services.ReportService) *AdminHandler {
	return &AdminHandler{
		reportService: reportService,
		now:           time.Now,
	}
}

// GET /admin/revenue
func (h *AdminHandler) GetRevenue(c *gin.Context) {
	caller, ok := currentIdentity(c)
	if !ok {
		return
	}

	from, to, ok := h.parseWindow(c)
	if !ok {
		return
	}

	summary, err := h.reportService.RevenueSummary(c.Request.Context(), caller, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, summary)
}

// POST /admin/revenue/export
func (h *AdminHandler) ExportRevenue(c *gin.Context) {
	caller, ok := currentIdentity(c)
	if !ok {
		return
	}

	from, to, ok := h.parseWindow(c)
	if !ok {
		return
	}

	result, err := h.reportService.ExportRevenue(c.Request.Context(), caller, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}

// parseWindow reads ?from=&to= as RFC 3339 timestamps or YYYY-MM-DD dates. The
// default window is the last 30 days.
func (h *AdminHandler) parseWindow(c *gin.Context) (time.Time, time.Time, bool) {
	to := h.now().UTC()
	if v := c.Query("to"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			utils.ValidationErrorResponse(c, []utils.ValidationError{
				{Field: "to", Tag: "datetime", Message: "to must be an RFC 3339 timestamp or YYYY-MM-DD"},
			})
			return time.Time{}, time.Time{}, false
		}
		to = t
	}

	from := to.Add(-defaultReportWindow)
	if v := c.Query("from"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			utils.ValidationErrorResponse(c, []utils.ValidationError{
				{Field: "from", Tag: "datetime", Message: "from must be an RFC 3339 timestamp or YYYY-MM-DD"},
			})
			return time.Time{}, time.Time{}, false
		}
		from = t
	}

	return from, to, true
}

func parseTimeParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", v)
}
