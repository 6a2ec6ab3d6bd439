package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartlib/library-api/internal/model"
	"github.com/smartlib/library-api/internal/repository"
)

// SemesterHandler manages the academic calendar. Activation flips the
// single is_current flag, so loans and clearances always resolve to
// exactly one semester.
type SemesterHandler struct {
	DB        *sql.DB
	Semesters *repository.SemesterRepo
}

func NewSemesterHandler(db *sql.DB, semesters *repository.SemesterRepo) *SemesterHandler {
	return &SemesterHandler{DB: db, Semesters: semesters}
}

type semesterReq struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`
}

// Create handles POST /v1/semesters. New semesters start inactive.
func (h *SemesterHandler) Create(c echo.Context) error {
	var req semesterReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD"})
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be YYYY-MM-DD"})
	}
	if !end.After(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be after start_date"})
	}
	sem := &model.Semester{Name: name, StartDate: start, EndDate: end}
	if err := h.Semesters.Create(c.Request().Context(), sem); err != nil {
		if strings.Contains(err.Error(), "1062") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "semester name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create semester"})
	}
	return c.JSON(http.StatusCreated, viewSemester(*sem))
}

// Activate handles POST /v1/semesters/:id/activate. The old and new
// current flags flip in one transaction.
func (h *SemesterHandler) Activate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	defer tx.Rollback()
	if err := h.Semesters.ActivateTx(ctx, tx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "semester not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate failed"})
	}
	sem, err := h.Semesters.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, viewSemester(sem))
}

// Current handles GET /v1/semesters/current.
func (h *SemesterHandler) Current(c echo.Context) error {
	sem, err := h.Semesters.Current(c.Request().Context())
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active semester"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, viewSemester(sem))
}

// List handles GET /v1/semesters.
func (h *SemesterHandler) List(c echo.Context) error {
	items, err := h.Semesters.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewSemesters(items)})
}
