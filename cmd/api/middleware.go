package main

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"storedesk/internal/access"
	"storedesk/internal/apperr"
	"storedesk/internal/audit"
	"storedesk/internal/auth"
)

func (app *application) BasicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// read the auth header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
				return
			}

			// parse it -> get the base64
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Basic" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
				return
			}

			// decode it
			decoded, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				app.unauthorizedBasicErrorResponse(w, r, err)
				return
			}

			// check the credentials
			username := app.config.Metrics.User
			pass := app.config.Metrics.Pass
			if username == "" || pass == "" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("basic auth is not configured"))
				return
			}

			creds := strings.SplitN(string(decoded), ":", 2)
			if len(creds) != 2 ||
				subtle.ConstantTimeCompare([]byte(creds[0]), []byte(username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(creds[1]), []byte(pass)) != 1 {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("invalid credentials"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (app *application) AuthTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := app.guard.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			app.errorResponse(w, r, err)
			return
		}

		ctx := auth.WithPrincipal(r.Context(), p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFromContext(r *http.Request) (*auth.Principal, bool) {
	return auth.PrincipalFrom(r.Context())
}

var errNoPrincipal = apperr.Unauthenticated(apperr.CodeNoToken, "authentication required")

// requireRole lets system owners and the listed roles through.
func (app *application) requireRole(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalFromContext(r)
			if !ok {
				app.errorResponse(w, r, errNoPrincipal)
				return
			}
			if err := access.RequireRole(p.RoleSlug(), allowed...); err != nil {
				app.errorResponse(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (app *application) requirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalFromContext(r)
			if !ok {
				app.errorResponse(w, r, errNoPrincipal)
				return
			}
			var stored access.Permissions
			if p.Role != nil {
				stored = p.Role.Permissions
			}
			if err := access.RequirePermission(p.RoleSlug(), stored, resource, action); err != nil {
				app.errorResponse(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (app *application) rateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.rateLimiter == nil || !app.config.RateLimiter.Enabled {
			next.ServeHTTP(w, r)
			return
		}
		if allow, retryAfter := app.rateLimiter.Allow(clientIP(r)); !allow {
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			app.rateLimitExceededResponse(w, r, strconv.Itoa(secs))
			return
		}
		next.ServeHTTP(w, r)
	})
}

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'"
	// the swagger UI loads its own bundle and boots from an inline script
	docsCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:; frame-ancestors 'none'"
)

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		if strings.HasPrefix(r.URL.Path, "/swagger/") {
			h.Set("Content-Security-Policy", docsCSP)
		} else {
			h.Set("Content-Security-Policy", apiCSP)
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the address left in RemoteAddr by middleware.RealIP, without the port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// actorFrom describes who is calling for audit purposes. The principal is
// optional: public routes only carry the network details.
func actorFrom(r *http.Request) audit.Actor {
	a := audit.Actor{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
	if p, ok := principalFromContext(r); ok {
		a.UserID = p.User.ID
		a.StoreID = p.StoreID()
		a.RoleSlug = p.RoleSlug()
	}
	return a
}
