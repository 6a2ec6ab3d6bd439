package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/smartlib/library-api/internal/policy"
	"github.com/smartlib/library-api/internal/repository"
	"github.com/smartlib/library-api/internal/service"
)

// ReservationHandler lets borrowers place and withdraw holds on
// available books, and staff cancel any hold.
type ReservationHandler struct {
	Svc          *service.ReservationService
	Reservations *repository.ReservationRepo
	Semesters    *repository.SemesterRepo
}

func NewReservationHandler(svc *service.ReservationService, reservations *repository.ReservationRepo, semesters *repository.SemesterRepo) *ReservationHandler {
	return &ReservationHandler{Svc: svc, Reservations: reservations, Semesters: semesters}
}

func (h *ReservationHandler) semesterID(ctx context.Context, c echo.Context) (uint64, error) {
	if raw := c.QueryParam("semester_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, policy.ErrNoCurrentSemester
		}
		return id, nil
	}
	sem, err := h.Semesters.Current(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, policy.ErrNoCurrentSemester
		}
		return 0, err
	}
	return sem.ID, nil
}

type reserveReq struct {
	BookID uint64 `json:"book_id"`
}

// Reserve handles POST /v1/reservations for the authenticated
// borrower.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil || req.BookID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "book_id required"})
	}
	ctx := c.Request().Context()
	semesterID, err := h.semesterID(ctx, c)
	if err != nil {
		return serviceError(c, err)
	}
	res, err := h.Svc.Reserve(ctx, userID, req.BookID, semesterID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, viewReservation(res))
}

// Cancel handles DELETE /v1/my-reservations/:id. Borrowers may cancel
// only their own hold.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Svc.Cancel(c.Request().Context(), id, userID); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CancelAny handles DELETE /v1/reservations/:id for staff; the
// ownership check is skipped.
func (h *ReservationHandler) CancelAny(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Svc.Cancel(c.Request().Context(), id, 0); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MyReservations handles GET /v1/my-reservations: the borrower's
// active holds in the current semester.
func (h *ReservationHandler) MyReservations(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	semesterID, err := h.semesterID(ctx, c)
	if err != nil {
		return serviceError(c, err)
	}
	items, err := h.Reservations.ListActiveByUser(ctx, userID, semesterID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
