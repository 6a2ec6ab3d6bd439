// Package router wires handlers to URL paths and scopes route groups
// by role.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/smartlib/library-api/internal/handler"
	"github.com/smartlib/library-api/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth mounts the auth endpoints under /v1/auth and the
// session endpoints under /v1. The rate limiter guards the
// unauthenticated group against password guessing; pass nil to skip
// it.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic mounts the unauthenticated catalog browse endpoints.
// Guests can search the catalog before asking for a library card, so
// these two routes carry the response cache; pass nil to skip it.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("/books", cat.ListBooks)
	g.GET("/books/:id", cat.GetBook)
}
