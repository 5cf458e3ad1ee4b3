package telephony

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"ivr-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SecretResolver returns the auth token that signs webhooks for callSID.
// accountSID is the account the request names and must not select the secret.
type SecretResolver func(ctx context.Context, callSID, accountSID string) (string, error)

// SignatureGuard rejects webhook requests that do not carry a valid provider
// signature. It runs before any handler touches state.
type SignatureGuard struct {
	// PublicBaseURL is the externally visible scheme+host the provider posts
	// to. When empty the URL is rebuilt from the request.
	PublicBaseURL string
	Resolve       SecretResolver
	// Skip disables verification (local development only).
	Skip bool
}

func (g SignatureGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.Skip {
			c.Next()
			return
		}
		log := logger.FromGin(c)

		if err := c.Request.ParseForm(); err != nil {
			log.Warn("webhook form parse failed", slog.Any("err", err))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		callSID := c.Request.PostForm.Get("CallSid")
		accountSID := c.Request.PostForm.Get("AccountSid")
		secret, err := g.Resolve(c.Request.Context(), callSID, accountSID)
		if err != nil {
			log.Warn("webhook secret lookup failed", slog.String("call_sid", callSID), slog.String("account_sid", accountSID), slog.Any("err", err))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		sig := c.GetHeader(SignatureHeader)
		if err := VerifySignature(secret, g.fullURL(c.Request), c.Request.PostForm, sig); err != nil {
			log.Warn("webhook signature rejected", slog.String("path", c.Request.URL.Path), slog.Bool("has_signature", sig != ""))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func (g SignatureGuard) fullURL(r *http.Request) string {
	base := strings.TrimRight(g.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
			scheme = p
		}
		base = scheme + "://" + r.Host
	}
	return base + r.URL.RequestURI()
}
