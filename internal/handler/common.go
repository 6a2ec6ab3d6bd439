package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/smartlib/library-api/internal/policy"
	"github.com/smartlib/library-api/internal/repository"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric :param from the URL.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil
}

// serviceError maps a failed service call onto an HTTP response. The
// policy kinds carry the status; anything unclassified is a 500.
func serviceError(c echo.Context, err error) error {
	var blocked *policy.ClearanceBlockedError
	if errors.As(err, &blocked) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":                "clearance blocked",
			"code":                 "ClearanceBlocked",
			"open_transaction_ids": blocked.OpenTransactionIDs,
			"unpaid_fine_ids":      blocked.UnpaidFineIDs,
		})
	}
	if errors.Is(err, repository.ErrForbidden) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var pe *policy.Error
	if errors.As(err, &pe) {
		status := http.StatusInternalServerError
		switch pe.Kind {
		case policy.KindNotFound:
			status = http.StatusNotFound
		case policy.KindConflict:
			status = http.StatusConflict
		case policy.KindPrecondition:
			status = http.StatusUnprocessableEntity
		case policy.KindValidation:
			status = http.StatusBadRequest
		}
		return c.JSON(status, echo.Map{"error": pe.Message, "code": pe.Code})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
