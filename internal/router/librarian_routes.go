package router

import (
	"github.com/labstack/echo/v4"

	"github.com/smartlib/library-api/internal/handler"
	"github.com/smartlib/library-api/internal/middleware"
	"github.com/smartlib/library-api/internal/model"
)

// RegisterLibrarian mounts catalog and semester administration under
// /v1, restricted to the LIBRARIAN role. Read-only catalog browsing
// lives on the public router so these routes cover mutations only.
func RegisterLibrarian(
	e *echo.Echo,
	cat *handler.CatalogHandler,
	sem *handler.SemesterHandler,
	jwtSecret string,
) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleLibrarian),
	)

	// ---- Catalog ----
	g.POST("/books", cat.CreateBook)
	g.PUT("/books/:id", cat.UpdateBook)
	g.PATCH("/books/:id", cat.UpdateBook)
	g.DELETE("/books/:id", cat.ArchiveBook)

	// ---- Semesters ----
	g.POST("/semesters", sem.Create)
	g.POST("/semesters/:id/activate", sem.Activate)
	g.GET("/semesters", sem.List)
	g.GET("/semesters/current", sem.Current)
}
