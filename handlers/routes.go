package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mw "github.com/OpenStreetlifting/openstreetlifting-backend/middleware"
)

// Routes mounts every endpoint on e. metrics may be nil.
func (h *Handler) Routes(e *echo.Echo, metrics http.Handler) {
	// Public
	e.POST("/auth/signin", h.Signin)
	e.GET("/ris/formulas/current", h.CurrentFormula)
	e.GET("/ris/formulas/resolve", h.ResolveFormula)
	e.POST("/ris/compute", h.Compute)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}

	// Protected – require valid JWT in Authorization header
	admin := e.Group("/admin", mw.JWT(h.JWTKey))
	admin.POST("/import", h.Import)
	admin.POST("/recompute", h.Recompute)
	admin.POST("/password-hash", h.PasswordHash)
}
