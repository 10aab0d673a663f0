package router

// Handler declares routes on a router.
//
// Example:
//
//	type CourseHandler struct {
//	    repo *repository.Courses
//	}
//
//	func (h *CourseHandler) Routes(r *Router) {
//	    r.GET("/courses", h.list)
//	    r.POST("/courses", h.create)
//	}
type Handler interface {
	Routes(r *Router)
}

// HandlerFunc is the signature for route handlers.
// It receives a Context and returns an error.
// Returning a non-nil error triggers the error handler.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc to add cross-cutting concerns.
// Middleware can inspect/modify the request, short-circuit processing
// by writing a response or returning an error without calling next,
// or wrap the response.
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler handles errors returned from handlers.
type ErrorHandler func(Context, error)
