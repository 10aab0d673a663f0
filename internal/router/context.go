package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dmitrymomot/campus/pkg/clientip"
	"github.com/dmitrymomot/campus/pkg/session"
)

// Context provides request/response access and helper methods.
// It also implements context.Context by delegating to the underlying request context.
type Context interface {
	context.Context

	// Request returns the underlying *http.Request.
	Request() *http.Request

	// Response returns the underlying http.ResponseWriter.
	Response() http.ResponseWriter

	// Context returns the request's context.Context.
	Context() context.Context

	// Param returns the URL parameter value by name.
	// Returns empty string if the parameter doesn't exist.
	Param(name string) string

	// Params returns the URL parameter values in declaration order.
	Params() []string

	// Query returns the query parameter value by name.
	Query(name string) string

	// QueryDefault returns the query parameter value or a default.
	QueryDefault(name, defaultValue string) string

	// Form returns the form value by name.
	// Calls ParseForm/ParseMultipartForm internally on first access.
	Form(name string) string

	// FormFile returns the first file for the given form key.
	FormFile(name string) (multipart.File, *multipart.FileHeader, error)

	// FormValues returns all simple form fields as a flat map,
	// first value per key. The shape the validator consumes.
	FormValues() map[string]string

	// DecodeJSON decodes the request body into v.
	DecodeJSON(v any) error

	// Header returns the request header value by name.
	Header(name string) string

	// SetHeader sets a response header.
	SetHeader(name, value string)

	// ClientIP returns the client address, honoring proxy headers.
	ClientIP() string

	// UserAgent returns the User-Agent request header.
	UserAgent() string

	// Referrer returns the Referer request header.
	Referrer() string

	// JSON writes a JSON response with the given status code.
	JSON(code int, v any) error

	// Success writes a success envelope.
	Success(code int, message string, data any) error

	// Fail writes a failure envelope.
	Fail(code int, message string, errs map[string][]string) error

	// String writes a plain text response with the given status code.
	String(code int, s string) error

	// NoContent writes a response with no body.
	NoContent(code int) error

	// Redirect redirects to the given URL with the given status code.
	Redirect(code int, url string) error

	// Error creates and returns an HTTPError without writing a response.
	// The error should be returned from the handler to trigger the error handler.
	Error(code int, message string, opts ...HTTPErrorOption) *HTTPError

	// Written returns true if a response has already been written.
	Written() bool

	// Logger returns the logger for advanced usage.
	Logger() *slog.Logger

	// LogDebug logs a debug message with optional attributes.
	LogDebug(msg string, attrs ...any)

	// LogInfo logs an info message with optional attributes.
	LogInfo(msg string, attrs ...any)

	// LogWarn logs a warning message with optional attributes.
	LogWarn(msg string, attrs ...any)

	// LogError logs an error message with optional attributes.
	LogError(msg string, attrs ...any)

	// Set stores a value in the request context.
	// The value can be retrieved using Get or from c.Context().Value(key).
	Set(key any, value any)

	// Get retrieves a value from the request context.
	// Returns nil if the key is not found.
	Get(key any) any

	// Session returns the current session, loading or creating it as needed.
	// Returns session.ErrNotConfigured if the router has no session manager.
	Session() (*session.Session, error)

	// AuthenticateSession associates a user with the session and rotates the token.
	AuthenticateSession(userID int64) error

	// DestroySession removes the session and clears the cookie.
	DestroySession() error

	// ResponseWriter returns the underlying ResponseWriter for advanced usage.
	ResponseWriter() *ResponseWriter
}

// requestContext implements the Context interface.
type requestContext struct {
	response       *ResponseWriter
	request        *http.Request
	logger         *slog.Logger
	sessionManager *session.Manager

	session       *session.Session
	sessionLoaded bool
	sessionHook   bool

	paramNames  []string
	paramValues []string
}

func newContext(w http.ResponseWriter, r *http.Request, router *Router) *requestContext {
	return &requestContext{
		response:       NewResponseWriter(w),
		request:        r,
		logger:         router.logger,
		sessionManager: router.sessions,
	}
}

func (c *requestContext) Request() *http.Request         { return c.request }
func (c *requestContext) Response() http.ResponseWriter  { return c.response }
func (c *requestContext) Context() context.Context       { return c.request.Context() }
func (c *requestContext) ResponseWriter() *ResponseWriter { return c.response }

func (c *requestContext) Deadline() (time.Time, bool) { return c.request.Context().Deadline() }
func (c *requestContext) Done() <-chan struct{}       { return c.request.Context().Done() }
func (c *requestContext) Err() error                  { return c.request.Context().Err() }
func (c *requestContext) Value(key any) any           { return c.request.Context().Value(key) }

func (c *requestContext) Param(name string) string {
	for i, n := range c.paramNames {
		if n == name {
			return c.paramValues[i]
		}
	}
	return ""
}

func (c *requestContext) Params() []string {
	return c.paramValues
}

func (c *requestContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *requestContext) QueryDefault(name, defaultValue string) string {
	v := c.request.URL.Query().Get(name)
	if v == "" {
		return defaultValue
	}
	return v
}

func (c *requestContext) Form(name string) string {
	return c.request.FormValue(name)
}

func (c *requestContext) FormFile(name string) (multipart.File, *multipart.FileHeader, error) {
	return c.request.FormFile(name)
}

func (c *requestContext) FormValues() map[string]string {
	_ = c.request.ParseForm()
	out := make(map[string]string, len(c.request.Form))
	for key, vals := range c.request.Form {
		if len(vals) > 0 {
			out[key] = vals[0]
		}
	}
	return out
}

func (c *requestContext) DecodeJSON(v any) error {
	if err := json.NewDecoder(c.request.Body).Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func (c *requestContext) Header(name string) string {
	return c.request.Header.Get(name)
}

func (c *requestContext) SetHeader(name, value string) {
	c.response.Header().Set(name, value)
}

func (c *requestContext) ClientIP() string {
	return clientip.FromRequest(c.request)
}

func (c *requestContext) UserAgent() string {
	return c.request.UserAgent()
}

func (c *requestContext) Referrer() string {
	return c.request.Referer()
}

func (c *requestContext) JSON(code int, v any) error {
	c.response.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.response.WriteHeader(code)
	return json.NewEncoder(c.response).Encode(v)
}

func (c *requestContext) Success(code int, message string, data any) error {
	return c.JSON(code, Envelope{Success: true, Message: message, Data: data})
}

func (c *requestContext) Fail(code int, message string, errs map[string][]string) error {
	return c.JSON(code, Envelope{Success: false, Message: message, Errors: errs})
}

func (c *requestContext) String(code int, s string) error {
	c.response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.response.WriteHeader(code)
	_, err := c.response.Write([]byte(s))
	return err
}

func (c *requestContext) NoContent(code int) error {
	c.response.WriteHeader(code)
	return nil
}

func (c *requestContext) Redirect(code int, url string) error {
	http.Redirect(c.response, c.request, url, code)
	return nil
}

func (c *requestContext) Error(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	err := NewHTTPError(code, message)
	for _, opt := range opts {
		opt(err)
	}
	return err
}

func (c *requestContext) Written() bool {
	return c.response.Written()
}

func (c *requestContext) Logger() *slog.Logger {
	return c.logger
}

func (c *requestContext) LogDebug(msg string, attrs ...any) {
	c.logger.DebugContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogInfo(msg string, attrs ...any) {
	c.logger.InfoContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogWarn(msg string, attrs ...any) {
	c.logger.WarnContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogError(msg string, attrs ...any) {
	c.logger.ErrorContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) Set(key, value any) {
	ctx := context.WithValue(c.request.Context(), key, value)
	c.request = c.request.WithContext(ctx)
}

func (c *requestContext) Get(key any) any {
	return c.request.Context().Value(key)
}

// registerSessionHook ensures the session flush hook is registered once.
// It runs before the response is written to persist any session changes.
func (c *requestContext) registerSessionHook() {
	if c.sessionHook || c.sessionManager == nil {
		return
	}
	c.sessionHook = true
	c.response.OnBeforeWrite(func() {
		if c.session != nil && c.session.IsDirty() {
			// Best-effort save; errors are logged but not propagated
			// to avoid interrupting response rendering.
			if err := c.sessionManager.Save(c.Context(), c.session); err != nil {
				c.logger.ErrorContext(c.Context(), "failed to save session", slog.Any("error", err))
				return
			}
			c.session.ClearDirty()
		}
	})
}

func (c *requestContext) Session() (*session.Session, error) {
	if c.sessionManager == nil {
		return nil, session.ErrNotConfigured
	}

	c.registerSessionHook()

	if c.sessionLoaded {
		return c.session, nil
	}

	sess, err := c.sessionManager.LoadOrCreate(c.Context(), c.response, c.request)
	if err != nil {
		return nil, err
	}

	c.session = sess
	c.sessionLoaded = true
	return c.session, nil
}

func (c *requestContext) AuthenticateSession(userID int64) error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	return c.sessionManager.Authenticate(c.Context(), c.response, sess, userID)
}

func (c *requestContext) DestroySession() error {
	if c.sessionManager == nil {
		return session.ErrNotConfigured
	}
	if c.session == nil {
		if _, err := c.Session(); err != nil {
			return err
		}
	}
	if err := c.sessionManager.Destroy(c.Context(), c.response, c.session); err != nil {
		return err
	}
	c.session = nil
	c.sessionLoaded = true // keep nil cached, prevents reload
	return nil
}
