package handler

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/smartlib/library-api/internal/model"
	"github.com/smartlib/library-api/internal/repository"
)

// CatalogHandler exposes the book catalog: librarians manage records,
// everyone else browses.
type CatalogHandler struct {
	Books *repository.BookRepo
}

func NewCatalogHandler(books *repository.BookRepo) *CatalogHandler {
	return &CatalogHandler{Books: books}
}

type bookReq struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	ISBN       string `json:"isbn"`
	Category   string `json:"category"`
	PriceCents uint32 `json:"price_cents"`
}

func (b *bookReq) normalize() {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.Category = strings.TrimSpace(b.Category)
}

// CreateBook handles POST /v1/books. The replacement price is part of
// the record; it becomes the lost-book fine if the copy disappears.
func (h *CatalogHandler) CreateBook(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.normalize()
	if req.Title == "" || req.Author == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and author are required"})
	}
	book := &model.Book{
		Title:      req.Title,
		Author:     req.Author,
		ISBN:       req.ISBN,
		Category:   req.Category,
		PriceCents: req.PriceCents,
		Status:     model.BookAvailable,
	}
	if err := h.Books.Create(c.Request().Context(), book); err != nil {
		if strings.Contains(err.Error(), "1062") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "isbn already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create book"})
	}
	return c.JSON(http.StatusCreated, viewBook(*book))
}

// UpdateBook handles PUT/PATCH /v1/books/:id.
func (h *CatalogHandler) UpdateBook(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.normalize()
	if req.Title == "" || req.Author == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and author are required"})
	}
	book, err := h.Books.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	book.Title = req.Title
	book.Author = req.Author
	book.ISBN = req.ISBN
	book.Category = req.Category
	book.PriceCents = req.PriceCents
	if err := h.Books.Update(c.Request().Context(), &book); err != nil {
		if strings.Contains(err.Error(), "1062") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "isbn already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, viewBook(book))
}

// ArchiveBook handles DELETE /v1/books/:id. Archiving withdraws the
// copy from circulation; a borrowed book cannot be archived while its
// loan is open.
func (h *CatalogHandler) ArchiveBook(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Books.Archive(c.Request().Context(), id); err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "book is currently borrowed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "archive failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// GetBook handles GET /v1/books/:id.
func (h *CatalogHandler) GetBook(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	book, err := h.Books.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, viewBook(book))
}

// ListBooks handles GET /v1/books with optional ?q= search over
// title/author/isbn and ?status= filter.
func (h *CatalogHandler) ListBooks(c echo.Context) error {
	search := strings.TrimSpace(c.QueryParam("q"))
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	items, err := h.Books.List(c.Request().Context(), search, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewBooks(items)})
}
