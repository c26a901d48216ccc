package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/antigravity-dev/beadsmap/internal/config"
)

// AuthMiddleware guards endpoints that change stored sources.
type AuthMiddleware struct {
	cfg    *config.Manager
	logger *slog.Logger
}

func NewAuthMiddleware(cfg *config.Manager, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg, logger: logger}
}

// truncateToken keeps only a prefix of token for logging.
func truncateToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "****"
}

// isLocalRequest checks if the request comes from a loopback or private address.
func isLocalRequest(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}

// extractToken gets the bearer token from the Authorization header.
func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	parts := strings.Fields(auth)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func isValidToken(sec config.APISecurity, token string) bool {
	if token == "" {
		return false
	}
	for _, allowed := range sec.AllowedTokens {
		if token == allowed {
			return true
		}
	}
	return false
}

// RequireAuth rejects requests that fail the configured security policy.
// With security disabled, only RequireLocalOnly is enforced.
func (am *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sec := am.cfg.Get().API.Security
		token := extractToken(r)

		reject := func(code int, msg string) {
			am.logger.Warn("api request rejected",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"token", truncateToken(token),
				"status", code,
				"error", msg,
				"duration", time.Since(start).String(),
			)
			writeError(w, code, msg)
		}

		if sec.RequireLocalOnly && !isLocalRequest(r.RemoteAddr) {
			reject(http.StatusForbidden, "local requests only")
			return
		}
		if sec.Enabled {
			if token == "" {
				reject(http.StatusUnauthorized, "missing bearer token")
				return
			}
			if !isValidToken(sec, token) {
				reject(http.StatusUnauthorized, "invalid token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
