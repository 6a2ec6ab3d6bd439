package router

import (
	"github.com/labstack/echo/v4"

	"github.com/smartlib/library-api/internal/handler"
	"github.com/smartlib/library-api/internal/middleware"
	"github.com/smartlib/library-api/internal/model"
)

// RegisterBorrower mounts the self-service endpoints for students and
// teachers under /v1. Borrowers see their own loans, fines, clearance
// standing and reservations; everything else goes through the desk.
func RegisterBorrower(
	e *echo.Echo,
	circ *handler.CirculationHandler,
	fines *handler.FineHandler,
	clr *handler.ClearanceHandler,
	res *handler.ReservationHandler,
	jwtSecret string,
) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent, model.RoleTeacher),
	)

	g.GET("/my-loans", circ.MyLoans)
	g.GET("/my-fines", fines.MyFines)
	g.GET("/my-clearance", clr.MyClearance)

	g.POST("/reservations", res.Reserve)
	g.GET("/my-reservations", res.MyReservations)
	g.DELETE("/my-reservations/:id", res.Cancel)
}
