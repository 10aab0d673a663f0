package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/dmitrymomot/campus/pkg/logger"
	"github.com/dmitrymomot/campus/pkg/session"
)

// Methods eligible as override targets for HTML form submissions.
var overridableMethods = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodOverrideField is the form field a POST request may carry to be
// dispatched as another verb. MethodOverrideHeader is the header
// equivalent, checked when the field is absent.
const (
	MethodOverrideField  = "_method"
	MethodOverrideHeader = "X-HTTP-Method-Override"
)

// Route is one registered method+pattern entry. Routes are matched by a
// linear scan in registration order; the first match wins.
type Route struct {
	method     string
	pattern    string
	re         *regexp.Regexp
	paramNames []string
	handler    HandlerFunc
	middleware []Middleware
	name       string

	router *Router
}

// Use appends route-specific middleware, executed after global and
// group middleware.
func (r *Route) Use(mw ...Middleware) *Route {
	r.middleware = append(r.middleware, mw...)
	return r
}

// Name registers the route for reverse URL generation.
func (r *Route) Name(name string) *Route {
	r.name = name
	r.router.rootRouter().byName[name] = r
	return r
}

// Pattern returns the full registered pattern.
func (r *Route) Pattern() string { return r.pattern }

// Method returns the HTTP method the route answers to.
func (r *Route) Method() string { return r.method }

// Router dispatches HTTP requests to registered handlers. It implements
// http.Handler. The zero value is not usable; call New.
type Router struct {
	routes   []*Route
	byName   map[string]*Route
	global   []Middleware
	logger   *slog.Logger
	errorFn  ErrorHandler
	notFound HandlerFunc
	basePath string
	sessions *session.Manager

	// group state; nil root means this IS the root
	root      *Router
	prefix    string
	inherited []Middleware
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the structured logger used by contexts and the
// not-found handler.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithErrorHandler replaces the default error handler.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(r *Router) {
		if fn != nil {
			r.errorFn = fn
		}
	}
}

// WithNotFound replaces the default 404 handler.
func WithNotFound(h HandlerFunc) Option {
	return func(r *Router) {
		if h != nil {
			r.notFound = h
		}
	}
}

// WithBasePath prefixes every registered pattern.
func WithBasePath(base string) Option {
	return func(r *Router) { r.basePath = strings.TrimSuffix(base, "/") }
}

// WithSessionManager wires session loading into request contexts.
func WithSessionManager(m *session.Manager) Option {
	return func(r *Router) { r.sessions = m }
}

// New creates a router.
func New(opts ...Option) *Router {
	r := &Router{
		byName: make(map[string]*Route),
		logger: logger.NewDiscard(),
	}
	r.errorFn = r.defaultErrorHandler
	r.notFound = r.defaultNotFound
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) rootRouter() *Router {
	if r.root != nil {
		return r.root
	}
	return r
}

// Use appends middleware. On the root router these are global,
// executed before any route middleware, in registration order.
// On a group they apply to routes registered within the group.
func (r *Router) Use(mw ...Middleware) {
	if r.root == nil {
		r.global = append(r.global, mw...)
		return
	}
	r.inherited = append(r.inherited, mw...)
}

// Handle registers a route. Registering the same method+pattern again
// silently overwrites the earlier entry in place, keeping its position
// in the match order.
func (r *Router) Handle(method, pattern string, h HandlerFunc, name ...string) *Route {
	root := r.rootRouter()
	full := joinPattern(root.basePath, joinPattern(r.prefix, pattern))

	re, params, err := compilePattern(full)
	if err != nil {
		panic(fmt.Sprintf("router: %v", err))
	}

	route := &Route{
		method:     strings.ToUpper(method),
		pattern:    full,
		re:         re,
		paramNames: params,
		handler:    h,
		middleware: slices.Clone(r.inherited),
		router:     root,
	}
	if len(name) > 0 && name[0] != "" {
		route.name = name[0]
		root.byName[name[0]] = route
	}

	for i, existing := range root.routes {
		if existing.method == route.method && existing.pattern == route.pattern {
			root.routes[i] = route
			return route
		}
	}
	root.routes = append(root.routes, route)
	return route
}

// GET registers a handler for GET requests.
func (r *Router) GET(pattern string, h HandlerFunc, name ...string) *Route {
	return r.Handle(http.MethodGet, pattern, h, name...)
}

// POST registers a handler for POST requests.
func (r *Router) POST(pattern string, h HandlerFunc, name ...string) *Route {
	return r.Handle(http.MethodPost, pattern, h, name...)
}

// PUT registers a handler for PUT requests.
func (r *Router) PUT(pattern string, h HandlerFunc, name ...string) *Route {
	return r.Handle(http.MethodPut, pattern, h, name...)
}

// PATCH registers a handler for PATCH requests.
func (r *Router) PATCH(pattern string, h HandlerFunc, name ...string) *Route {
	return r.Handle(http.MethodPatch, pattern, h, name...)
}

// DELETE registers a handler for DELETE requests.
func (r *Router) DELETE(pattern string, h HandlerFunc, name ...string) *Route {
	return r.Handle(http.MethodDelete, pattern, h, name...)
}

// Match registers the same handler under several methods.
func (r *Router) Match(methods []string, pattern string, h HandlerFunc) []*Route {
	routes := make([]*Route, 0, len(methods))
	for _, m := range methods {
		routes = append(routes, r.Handle(m, pattern, h))
	}
	return routes
}

// Any registers the handler for all common methods.
func (r *Router) Any(pattern string, h HandlerFunc) []*Route {
	return r.Match([]string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete,
	}, pattern, h)
}

// Group registers routes under a shared prefix and middleware list.
// Nested groups concatenate prefixes; parent middleware always precedes
// child middleware.
func (r *Router) Group(prefix string, fn func(r *Router), mw ...Middleware) {
	sub := &Router{
		root:      r.rootRouter(),
		prefix:    joinPattern(r.prefix, prefix),
		inherited: append(slices.Clone(r.inherited), mw...),
	}
	fn(sub)
}

// Mount attaches a plain http.Handler that bypasses the Context
// machinery. The handler answers the prefix itself and one path
// segment below it.
func (r *Router) Mount(prefix string, h http.Handler) {
	r.Any(strings.TrimSuffix(prefix, "/")+"/{rest?}", func(c Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	})
}

// URL generates a URL for a named route. Required placeholders must all
// be supplied; unused optional placeholders are dropped and duplicate
// slashes collapsed.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	route, ok := r.rootRouter().byName[name]
	if !ok {
		return "", fmt.Errorf("router: no route named %q", name)
	}

	url := route.pattern
	for _, p := range route.paramNames {
		required := "{" + p + "}"
		optional := "{" + p + "?}"
		if v, ok := params[p]; ok && v != "" {
			url = strings.ReplaceAll(url, required, v)
			url = strings.ReplaceAll(url, optional, v)
			continue
		}
		if strings.Contains(url, optional) {
			url = strings.ReplaceAll(url, optional, "")
			continue
		}
		return "", fmt.Errorf("router: missing parameter %q for route %q", p, name)
	}

	for strings.Contains(url, "//") {
		url = strings.ReplaceAll(url, "//", "/")
	}
	if len(url) > 1 {
		url = strings.TrimSuffix(url, "/")
	}
	return url, nil
}

// ServeHTTP dispatches the request to the first matching route.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	root := r.rootRouter()
	method := effectiveMethod(req)
	path := req.URL.Path

	for _, route := range root.routes {
		if route.method != method {
			continue
		}
		m := route.re.FindStringSubmatch(path)
		if m == nil {
			continue
		}

		c := newContext(w, req, root)
		c.paramNames = route.paramNames
		c.paramValues = m[1:]

		h := route.handler
		for _, mw := range slices.Backward(route.middleware) {
			h = mw(h)
		}
		for _, mw := range slices.Backward(root.global) {
			h = mw(h)
		}

		if err := h(c); err != nil {
			root.errorFn(c, err)
		}
		return
	}

	// Unmatched requests still pass through global middleware so
	// cross-cutting concerns like CORS preflight handling apply.
	c := newContext(w, req, root)
	h := root.notFound
	for _, mw := range slices.Backward(root.global) {
		h = mw(h)
	}
	if err := h(c); err != nil {
		root.errorFn(c, err)
	}
}

func (r *Router) defaultNotFound(c Context) error {
	c.LogWarn("route not found",
		slog.String("method", c.Request().Method),
		slog.String("path", c.Request().URL.Path),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.UserAgent()))
	return c.Fail(http.StatusNotFound, "Resource not found", nil)
}

func (r *Router) defaultErrorHandler(c Context, err error) {
	if c.Written() {
		c.LogError("handler error after response written", slog.Any("error", err))
		return
	}

	if httpErr := AsHTTPError(err); httpErr != nil {
		if httpErr.Err != nil {
			c.LogError(httpErr.Message, slog.Any("error", httpErr.Err),
				slog.Int("status", httpErr.Code))
		}
		_ = c.Fail(httpErr.Code, httpErr.Message, httpErr.Fields)
		return
	}

	c.LogError("unhandled error",
		slog.Any("error", err),
		slog.String("method", c.Request().Method),
		slog.String("path", c.Request().URL.Path))
	_ = c.Fail(http.StatusInternalServerError, "Internal server error", nil)
}

// effectiveMethod resolves the method override for POST requests
// carrying a _method form field or X-HTTP-Method-Override header.
func effectiveMethod(req *http.Request) string {
	if req.Method != http.MethodPost {
		return req.Method
	}

	override := req.PostFormValue(MethodOverrideField)
	if override == "" {
		override = req.Header.Get(MethodOverrideHeader)
	}
	override = strings.ToUpper(strings.TrimSpace(override))
	if overridableMethods[override] {
		return override
	}
	return http.MethodPost
}

// joinPattern concatenates path segments without doubling slashes.
func joinPattern(prefix, pattern string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if pattern == "" || pattern == "/" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	return prefix + pattern
}

var errUnbalancedBrace = fmt.Errorf("unbalanced brace in pattern")

// compilePattern turns a pattern into an anchored regexp. {name} matches
// a single non-empty segment; a trailing {name?} matches an optional
// segment including its leading slash.
func compilePattern(pattern string) (*regexp.Regexp, []string, error) {
	var b strings.Builder
	b.WriteString("^")
	var names []string

	rest := pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.IndexByte(rest, '}') >= 0 {
				return nil, nil, fmt.Errorf("%w: %q", errUnbalancedBrace, pattern)
			}
			b.WriteString(regexp.QuoteMeta(rest))
			break
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			return nil, nil, fmt.Errorf("%w: %q", errUnbalancedBrace, pattern)
		}
		closing += open

		literal := rest[:open]
		token := rest[open+1 : closing]
		optional := strings.HasSuffix(token, "?")
		name := strings.TrimSuffix(token, "?")
		if name == "" {
			return nil, nil, fmt.Errorf("empty parameter name in pattern %q", pattern)
		}

		if optional {
			if closing != len(rest)-1 {
				return nil, nil, fmt.Errorf("optional parameter %q must be the trailing segment in %q", name, pattern)
			}
			b.WriteString(regexp.QuoteMeta(strings.TrimSuffix(literal, "/")))
			b.WriteString(`(?:/([^/]*))?`)
		} else {
			b.WriteString(regexp.QuoteMeta(literal))
			b.WriteString(`([^/]+)`)
		}
		names = append(names, name)
		rest = rest[closing+1:]
	}

	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return re, names, nil
}
