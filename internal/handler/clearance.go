package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/smartlib/library-api/internal/policy"
	"github.com/smartlib/library-api/internal/repository"
	"github.com/smartlib/library-api/internal/service"
)

// ClearanceHandler exposes the end-of-semester clearance gate: staff
// review, approve and override; borrowers check their own standing.
type ClearanceHandler struct {
	Svc        *service.ClearanceService
	Clearances *repository.ClearanceRepo
	Semesters  *repository.SemesterRepo
}

func NewClearanceHandler(svc *service.ClearanceService, clearances *repository.ClearanceRepo, semesters *repository.SemesterRepo) *ClearanceHandler {
	return &ClearanceHandler{Svc: svc, Clearances: clearances, Semesters: semesters}
}

func (h *ClearanceHandler) semesterID(ctx context.Context, c echo.Context) (uint64, error) {
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

// Process handles POST /v1/clearances/:user_id/process: approve the
// user's clearance for the semester. Fails with the blocking loan and
// fine ids when anything is still outstanding.
func (h *ClearanceHandler) Process(c echo.Context) error {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}
	approverID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	semesterID, err := h.semesterID(ctx, c)
	if err != nil {
		return serviceError(c, err)
	}
	cl, err := h.Svc.ProcessClearance(ctx, userID, semesterID, approverID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, viewClearance(cl))
}

// Recompute handles POST /v1/clearances/:user_id/recompute: rederive
// the status from the ledger, replacing any staff override.
func (h *ClearanceHandler) Recompute(c echo.Context) error {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}
	ctx := c.Request().Context()
	semesterID, err := h.semesterID(ctx, c)
	if err != nil {
		return serviceError(c, err)
	}
	ev, err := h.Svc.Recompute(ctx, userID, semesterID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":               ev.Status,
		"open_transaction_ids": ev.OpenTransactionIDs,
		"unpaid_fine_ids":      ev.UnpaidFineIDs,
	})
}

type blockReq struct {
	Notes string `json:"notes"`
}

// Block handles POST /v1/clearances/:user_id/block: a staff override
// that holds until the next recompute.
func (h *ClearanceHandler) Block(c echo.Context) error {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req blockReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Notes) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "notes required"})
	}
	ctx := c.Request().Context()
	semesterID, err := h.semesterID(ctx, c)
	if err != nil {
		return serviceError(c, err)
	}
	cl, err := h.Svc.Block(ctx, userID, semesterID, staffID, strings.TrimSpace(req.Notes))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, viewClearance(cl))
}

// List handles GET /v1/clearances with an optional ?status= filter,
// scoped to the current semester.
func (h *ClearanceHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	semesterID, err := h.semesterID(ctx, c)
	if err != nil {
		return serviceError(c, err)
	}
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	items, err := h.Clearances.ListBySemester(ctx, semesterID, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MyClearance handles GET /v1/my-clearance: the borrower's standing
// for the current semester, computed live so it never shows a stale
// row.
func (h *ClearanceHandler) MyClearance(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	semesterID, err := h.semesterID(ctx, c)
	if err != nil {
		return serviceError(c, err)
	}
	ev, err := h.Svc.Recompute(ctx, userID, semesterID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":               ev.Status,
		"open_transaction_ids": ev.OpenTransactionIDs,
		"unpaid_fine_ids":      ev.UnpaidFineIDs,
	})
}
