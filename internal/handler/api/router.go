package api

import (
	xhttp "SPPredict/pkg/http"

	"github.com/labstack/echo/v4"
)

// Router registers a set of handlers as one.
type Router struct {
	handlers []xhttp.Handler
}

func NewRouter(handlers ...xhttp.Handler) *Router {
	return &Router{handlers: handlers}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}
