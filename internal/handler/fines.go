package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/smartlib/library-api/internal/repository"
	"github.com/smartlib/library-api/internal/service"
)

// FineHandler exposes fine settlement to the desk and a read-only view
// to borrowers.
type FineHandler struct {
	Svc   *service.FineService
	Fines *repository.FineRepo
}

func NewFineHandler(svc *service.FineService, fines *repository.FineRepo) *FineHandler {
	return &FineHandler{Svc: svc, Fines: fines}
}

type payReq struct {
	AmountCents uint32 `json:"amount_cents"`
}

// Pay handles POST /v1/fines/:id/pay. The amount must match the fine
// exactly; partial payments are rejected.
func (h *FineHandler) Pay(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req payReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	fine, err := h.Svc.PayFine(c.Request().Context(), id, req.AmountCents, staffID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, viewFine(fine))
}

// Waive handles POST /v1/fines/:id/waive.
func (h *FineHandler) Waive(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	fine, err := h.Svc.WaiveFine(c.Request().Context(), id, staffID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, viewFine(fine))
}

// List handles GET /v1/fines with an optional ?status= filter.
func (h *FineHandler) List(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	items, err := h.Fines.List(c.Request().Context(), status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MyFines handles GET /v1/my-fines for the authenticated borrower.
func (h *FineHandler) MyFines(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Fines.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
