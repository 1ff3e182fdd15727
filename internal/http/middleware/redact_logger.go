// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements AccessLog, the structured access logger. It never logs
// bodies (webhook updates carry user messages) and scrubs obvious secrets:
//
//   - Masks sensitive headers: Authorization, Cookie, Set-Cookie, the Telegram
//     webhook secret header, plus any configured extras.
//   - Replaces bot tokens ("123456:ABC-...") found in paths and queries.
//   - Caps the logged query length.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// TelegramSecretHeader carries the webhook secret token on Telegram calls.
const TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxQueryLogLength = 2048

var botTokenRE = regexp.MustCompile(`\b\d{5,}:[A-Za-z0-9_-]{20,}\b`)

// RedactOptions configures AccessLog.
type RedactOptions struct {
	// MaskHeaders are extra header names (case-insensitive) whose values are
	// replaced with "[REDACTED]".
	MaskHeaders []string
	// LogHeaders includes the scrubbed request headers in each record.
	LogHeaders bool
}

func redact(s string) string {
	if s == "" {
		return s
	}
	return botTokenRE.ReplaceAllString(s, "[REDACTED:token]")
}

// AccessLog writes one structured record per request and stores a
// request-scoped logger for handlers (see LoggerFrom). Level follows the
// outcome: error for 5xx or Gin errors, warn for 4xx, info otherwise.
func AccessLog(opts RedactOptions) gin.HandlerFunc {
	mask := map[string]struct{}{
		"authorization":                        {},
		"cookie":                               {},
		"set-cookie":                           {},
		strings.ToLower(TelegramSecretHeader): {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			mask[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = redact(c.Request.URL.Path)
		}

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		ev := l.Info()
		status := c.Writer.Status()
		switch {
		case len(c.Errors) > 0:
			ev = l.Error().Str("errors", c.Errors.String())
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}

		if opts.LogHeaders {
			safe := make(map[string]string, len(c.Request.Header))
			for k, vv := range c.Request.Header {
				if _, ok := mask[strings.ToLower(k)]; ok {
					safe[k] = "[REDACTED]"
					continue
				}
				safe[k] = redact(strings.Join(vv, ", "))
			}
			ev = ev.Interface("headers", safe)
		}

		ev.Str("query", truncate(redact(c.Request.URL.RawQuery), maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Msg("http_request")
	}
}
