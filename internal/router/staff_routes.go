package router

import (
	"github.com/labstack/echo/v4"

	"github.com/smartlib/library-api/internal/handler"
	"github.com/smartlib/library-api/internal/middleware"
	"github.com/smartlib/library-api/internal/model"
)

// RegisterStaff mounts the circulation-desk endpoints under /v1. All
// routes require a valid JWT with the STAFF or LIBRARIAN role.
func RegisterStaff(
	e *echo.Echo,
	circ *handler.CirculationHandler,
	fines *handler.FineHandler,
	clr *handler.ClearanceHandler,
	res *handler.ReservationHandler,
	users *handler.UserHandler,
	jwtSecret string,
) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleLibrarian),
	)

	// ---- Loans ----
	g.POST("/loans", circ.Borrow)
	g.POST("/loans/:id/return", circ.Return)
	g.POST("/loans/:id/lost", circ.MarkLost)
	g.POST("/loans/sweep", circ.Sweep)
	g.GET("/loans/open", circ.ListOpen)
	g.GET("/loans/overdue", circ.ListOverdue)

	// ---- Fines ----
	g.POST("/fines/:id/pay", fines.Pay)
	g.POST("/fines/:id/waive", fines.Waive)
	g.GET("/fines", fines.List)

	// ---- Clearance ----
	g.POST("/clearances/:user_id/process", clr.Process)
	g.POST("/clearances/:user_id/recompute", clr.Recompute)
	g.POST("/clearances/:user_id/block", clr.Block)
	g.GET("/clearances", clr.List)

	// ---- Reservations (staff override) ----
	g.DELETE("/reservations/:id", res.CancelAny)

	// ---- Users ----
	g.GET("/users", users.List)
	g.GET("/users/:id", users.Get)
	g.PATCH("/users/:id/active", users.SetActive)
}
