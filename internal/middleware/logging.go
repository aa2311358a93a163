// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/metrics"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/store"
	"github.com/javajoker/insurance-backend/internal/utils"
)

// maxAuditBodyBytes caps how much of a request body is buffered for the audit trail.
// Larger bodies still reach the handler intact but are recorded as truncated.
const maxAuditBodyBytes = 64 << 10

// Request fields never written to the audit trail.
var redactedFields = map[string]bool{
	"national_id":    true,
	"payment_method": true,
	"client_secret":  true,
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(duration.Seconds())

		userID, _ := utils.GetUserIDFromContext(c)
		entry := logrus.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"route":      route,
			"status":     status,
			"duration":   duration.Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"user_id":    userID,
		})

		switch {
		case status >= 500:
			entry.Error("Request processed")
		case status >= 400:
			entry.Warn("Request processed")
		default:
			entry.Info("Request processed")
		}
	}
}

// AuditLogMiddleware records every mutating request made by an authenticated caller.
// View increments and processor webhooks are skipped; they are not user actions.
func AuditLogMiddleware(audit store.AuditLogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "GET" || c.Request.Method == "OPTIONS" || skipAudit(c.Request.URL.Path) {
			c.Next()
			return
		}

		// Read request body
		var requestBody []byte
		truncated := false
		if c.Request.Body != nil {
			body := c.Request.Body
			requestBody, _ = io.ReadAll(io.LimitReader(body, maxAuditBodyBytes+1))
			truncated = len(requestBody) > maxAuditBodyBytes
			c.Request.Body = readCloser{
				Reader: io.MultiReader(bytes.NewReader(requestBody), body),
				Closer: body,
			}
		}

		c.Next()

		email, ok := utils.GetEmailFromContext(c)
		if !ok {
			return
		}
		role, _ := utils.GetRoleFromContext(c)

		newValues := models.JSONB{}
		if truncated {
			newValues["request_truncated"] = true
		} else if len(requestBody) > 0 {
			var requestData map[string]interface{}
			if err := json.Unmarshal(requestBody, &requestData); err == nil {
				for k, v := range requestData {
					if redactedFields[k] {
						v = "[redacted]"
					}
					newValues[k] = v
				}
			}
		}
		newValues["response_status"] = c.Writer.Status()

		action := c.FullPath()
		if action == "" {
			action = c.Request.URL.Path
		}

		auditLog := &models.AuditLog{
			ActorEmail:   email,
			ActorRole:    models.Role(role),
			Action:       c.Request.Method + " " + action,
			ResourceType: extractResourceType(c.Request.URL.Path),
			ResourceID:   extractResourceID(c),
			NewValues:    newValues,
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
		}

		// Save audit log asynchronously
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := audit.CreateAuditLog(ctx, auditLog); err != nil {
				logrus.WithError(err).Error("Failed to create audit log")
			}
		}()
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

func skipAudit(path string) bool {
	return strings.HasPrefix(path, "/v1/views/") || strings.HasPrefix(path, "/v1/webhooks/")
}

func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "v1" {
		return parts[1]
	}
	if len(parts) >= 1 {
		return parts[0]
	}
	return "unknown"
}

func extractResourceID(c *gin.Context) string {
	for _, name := range []string{"id", "intent_id"} {
		if v := c.Param(name); v != "" {
			return v
		}
	}
	return ""
}
