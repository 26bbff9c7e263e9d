/**
 * Logger: structured helpers
 * @description: fixed-schema helpers for the log categories the service
 *               emits; the "type" field selects the output file via the
 *               FileHook
 * @func: FormatTimestamp, NowFormatted, LogAccessRequest, LogSyncAttempt,
 *        LogBusinessError, LogSystemEvent
 */
package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LogType selects the output file a record is routed to.
type LogType string

const (
	LogTypeAccess   LogType = "access"
	LogTypeSync     LogType = "sync"
	LogTypeBusiness LogType = "business"
	LogTypeError    LogType = "error"
	LogTypeSystem   LogType = "system"
)

// FormatTimestamp renders a timestamp in the service-wide layout.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000")
}

// NowFormatted renders the current time in the service-wide layout.
func NowFormatted() string {
	return FormatTimestamp(time.Now())
}

// LogAccessRequest records one handled HTTP request.
func LogAccessRequest(c *gin.Context, startTime time.Time, requestID string) {
	if LoggerInstance == nil {
		return
	}
	LoggerInstance.logger.WithFields(logrus.Fields{
		"type":        LogTypeAccess,
		"request_id":  requestID,
		"method":      c.Request.Method,
		"path":        c.Request.URL.Path,
		"status":      c.Writer.Status(),
		"client_ip":   c.ClientIP(),
		"user_agent":  c.Request.UserAgent(),
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("http request")
}

// LogSyncAttempt records one synchronization attempt with its outcome.
// Mirrors the sync_events row so file logs stay greppable even when the
// database write itself failed.
func LogSyncAttempt(direction string, entityID int64, status string, duration time.Duration, message string, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}
	fields := logrus.Fields{
		"type":        LogTypeSync,
		"direction":   direction,
		"entity_id":   entityID,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}
	if message != "" {
		fields["message"] = message
	}
	for k, v := range extraFields {
		fields[k] = v
	}
	entry := LoggerInstance.logger.WithFields(fields)
	if status == "error" {
		entry.Error("sync attempt")
		return
	}
	entry.Info("sync attempt")
}

// LogBusinessError records a handler or service level failure with the
// request context attached.
func LogBusinessError(err error, requestID, clientIP, path, method string, extraFields map[string]interface{}) {
	if LoggerInstance == nil || err == nil {
		return
	}
	fields := logrus.Fields{
		"type":       LogTypeError,
		"request_id": requestID,
		"client_ip":  clientIP,
		"path":       path,
		"method":     method,
		"error":      err.Error(),
	}
	for k, v := range extraFields {
		fields[k] = v
	}
	LoggerInstance.logger.WithFields(fields).Error("business error")
}

// LogSystemEvent records lifecycle events (startup, shutdown, scheduler
// runs, config reloads).
func LogSystemEvent(component, event, message string, level logrus.Level, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}
	fields := logrus.Fields{
		"type":      LogTypeSystem,
		"component": component,
		"event":     event,
	}
	for k, v := range extraFields {
		fields[k] = v
	}
	LoggerInstance.logger.WithFields(fields).Log(level, message)
}
