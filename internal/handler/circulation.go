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

// CirculationHandler exposes the loan ledger to the circulation desk:
// recording borrows and returns, declaring losses and running the
// overdue sweep. Mutations go through the ledger service; read-only
// dashboards hit the repository directly.
type CirculationHandler struct {
	Ledger    *service.LedgerService
	Txns      *repository.TransactionRepo
	Semesters *repository.SemesterRepo
}

func NewCirculationHandler(ledger *service.LedgerService, txns *repository.TransactionRepo, semesters *repository.SemesterRepo) *CirculationHandler {
	return &CirculationHandler{Ledger: ledger, Txns: txns, Semesters: semesters}
}

// currentSemesterID resolves the active semester, or the semester_id
// query override when present.
func (h *CirculationHandler) currentSemesterID(ctx context.Context, c echo.Context) (uint64, error) {
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

type borrowReq struct {
	UserID uint64 `json:"user_id"`
	BookID uint64 `json:"book_id"`
}

// Borrow handles POST /v1/loans: the desk checks a book out to a
// borrower for the current semester.
func (h *CirculationHandler) Borrow(c echo.Context) error {
	var req borrowReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.BookID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and book_id required"})
	}
	ctx := c.Request().Context()
	semesterID, err := h.currentSemesterID(ctx, c)
	if err != nil {
		return serviceError(c, err)
	}
	txn, err := h.Ledger.BorrowBook(ctx, req.UserID, req.BookID, semesterID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, viewTransaction(txn))
}

// Return handles POST /v1/loans/:id/return.
func (h *CirculationHandler) Return(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	txn, err := h.Ledger.ReturnBook(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, viewTransaction(txn))
}

// MarkLost handles POST /v1/loans/:id/lost: the loan closes as LOST
// and a fine for the replacement price is raised.
func (h *CirculationHandler) MarkLost(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	fine, err := h.Ledger.MarkAsLost(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, viewFine(fine))
}

// Sweep handles POST /v1/loans/sweep: recompute every overdue loan's
// status and penalty now. The same sweep runs on a schedule; this
// endpoint lets staff trigger it on demand.
func (h *CirculationHandler) Sweep(c echo.Context) error {
	n, err := h.Ledger.SweepOverdue(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"swept": n})
}

// ListOpen handles GET /v1/loans/open: open loans in the current
// semester.
func (h *CirculationHandler) ListOpen(c echo.Context) error {
	ctx := c.Request().Context()
	semesterID, err := h.currentSemesterID(ctx, c)
	if err != nil {
		return serviceError(c, err)
	}
	items, err := h.Txns.ListOpen(ctx, semesterID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListOverdue handles GET /v1/loans/overdue.
func (h *CirculationHandler) ListOverdue(c echo.Context) error {
	ctx := c.Request().Context()
	semesterID, err := h.currentSemesterID(ctx, c)
	if err != nil {
		return serviceError(c, err)
	}
	items, err := h.Txns.ListOverdue(ctx, semesterID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MyLoans handles GET /v1/my-loans: the authenticated borrower's own
// ledger for the current semester.
func (h *CirculationHandler) MyLoans(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	semesterID, err := h.currentSemesterID(ctx, c)
	if err != nil {
		return serviceError(c, err)
	}
	items, err := h.Txns.ListByUser(ctx, userID, semesterID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
