package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/tirthgodhni98/giftcard-api/pkg/config"
)

var enabled bool

// InitSentry configures the global Sentry client. It is a no-op when
// reporting is disabled or no DSN is set.
func InitSentry(cfg config.SentryConfig, environment, release string) error {
	enabled = false
	if !cfg.Enabled || cfg.DSN == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialise sentry: %w", err)
	}
	enabled = true
	return nil
}

// Enabled reports whether events are sent anywhere
func Enabled() bool {
	return enabled
}

// Middleware attaches a Sentry hub to every request and re-panics so the
// recovery middleware still answers the client.
func Middleware() gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// CaptureError reports err with the given tags. It uses the request hub when
// ctx carries one.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if !enabled || err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent
func Flush(timeout time.Duration) {
	if enabled {
		sentry.Flush(timeout)
	}
}
