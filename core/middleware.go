package core

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// sessionName is the cookie that carries the opaque session token.
const sessionName = "speedrun"

const userContextKey = "user"

// SessionMiddleware reads the session token from the cookie and resolves it
// to a user. Absent, unknown, and expired tokens resolve to anonymous; only
// a store failure aborts the request.
func SessionMiddleware(cfg Config, store *sessions.CookieStore, creds *CredentialService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Get(c.Request, sessionName)
		if err != nil {
			// Tampered cookie: treat as anonymous with a fresh session.
			sess, _ = store.New(c.Request, sessionName)
		}
		applySessionOptions(cfg, sess)
		c.Set("session", sess)

		token, _ := sess.Values["token"].(string)
		user, err := creds.ResolveSession(c.Request.Context(), token)
		if err != nil {
			respondCoreError(c, err)
			c.Abort()
			return
		}
		if user != nil {
			c.Set(userContextKey, user)
		}
		c.Next()
	}
}

// currentUser returns the resolved user, or nil for anonymous requests.
func currentUser(c *gin.Context) *UserRecord {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	u, _ := v.(*UserRecord)
	return u
}

// requireLogin aborts with 401 when the request is anonymous.
func requireLogin(c *gin.Context) (*UserRecord, bool) {
	u := currentUser(c)
	if u == nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
		return nil, false
	}
	return u, true
}

// AdminOnly distinguishes "not logged in" (401) from "logged in, not admin"
// (403).
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
			c.Abort()
			return
		}
		if !u.IsAdmin {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "admin privilege required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OriginMiddleware validates Origin/Referer against the allowed list and
// sets CORS headers for credentialed requests.
func OriginMiddleware(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if origin == "" {
			// Same-origin navigation carries no Origin header.
			return true
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			if referer := c.GetHeader("Referer"); referer != "" {
				if u, err := url.Parse(referer); err == nil {
					origin = u.Scheme + "://" + u.Host
				}
			}
		}

		if !isAllowed(origin) {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
			c.Abort()
			return
		}

		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

// saveSessionToken stores the opaque token in the cookie session.
func saveSessionToken(c *gin.Context, cfg Config, token string) error {
	sessAny, _ := c.Get("session")
	sess, _ := sessAny.(*sessions.Session)
	sess.Values = map[interface{}]interface{}{"token": token}
	applySessionOptions(cfg, sess)
	return sess.Save(c.Request, c.Writer)
}

// clearSessionToken drops the cookie. The stored session row simply expires.
func clearSessionToken(c *gin.Context, cfg Config) error {
	sessAny, _ := c.Get("session")
	sess, _ := sessAny.(*sessions.Session)
	sess.Values = map[interface{}]interface{}{}
	applySessionOptions(cfg, sess)
	sess.Options.MaxAge = -1 // must be set after applySessionOptions to delete the cookie
	return sess.Save(c.Request, c.Writer)
}

func applySessionOptions(cfg Config, sess *sessions.Session) {
	if sess.Options == nil {
		sess.Options = &sessions.Options{}
	}
	sess.Options.Path = "/"
	sess.Options.MaxAge = int(sessionTTL.Seconds())
	sess.Options.HttpOnly = true
	sess.Options.Secure = cfg.CookieSecure
	sess.Options.SameSite = sameSiteFromString(cfg.CookieSameSite)
}

func sameSiteFromString(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}
