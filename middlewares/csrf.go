package middlewares

import (
	"net/http"

	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/pkg/csrf"
)

// stateChanging lists the verbs the CSRF guard protects. Safe verbs pass
// through untouched.
var stateChanging = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

const forbiddenPage = `<!DOCTYPE html>
<html>
<head><title>403 Forbidden</title></head>
<body><h1>403 Forbidden</h1><p>CSRF token mismatch.</p></body>
</html>
`

// CSRF returns middleware that verifies a per-session CSRF token on
// state-changing requests. The token is sought in the form field first,
// then the query string, then the X-CSRF-TOKEN header. A token is issued
// into the session on every request so templates and clients can read it.
func CSRF() router.Middleware {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			sess, err := c.Session()
			if err != nil {
				return router.ErrInternal("Session unavailable", router.WithError(err))
			}

			c.SetHeader(csrf.HeaderName, csrf.Issue(sess))

			if !stateChanging[c.Request().Method] {
				return next(c)
			}

			submitted := c.Form(csrf.FieldName)
			if submitted == "" {
				submitted = c.Query(csrf.FieldName)
			}
			if submitted == "" {
				submitted = c.Header(csrf.HeaderName)
			}

			if !csrf.Verify(sess, submitted) {
				c.LogWarn("csrf verification failed",
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"ip", c.ClientIP(),
					"user_agent", c.UserAgent(),
					"referrer", c.Referrer())

				if c.Header("X-Requested-With") == "XMLHttpRequest" {
					return c.Fail(http.StatusForbidden, "CSRF token mismatch", nil)
				}
				c.SetHeader("Content-Type", "text/html; charset=utf-8")
				c.Response().WriteHeader(http.StatusForbidden)
				_, _ = c.Response().Write([]byte(forbiddenPage))
				return nil
			}

			return next(c)
		}
	}
}
