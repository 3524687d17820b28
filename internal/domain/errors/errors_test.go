package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapping(t *testing.T) {
	appErr := NotFound("loan not found")
	require.Equal(t, http.StatusNotFound, appErr.Status)
	require.Equal(t, "NOT_FOUND", appErr.Code)
	require.ErrorIs(t, appErr, ErrNotFound)

	wrapped := fmt.Errorf("lookup: %w", appErr)
	var out *AppError
	require.ErrorAs(t, wrapped, &out)
	require.Equal(t, appErr, out)
}

func TestAppErrorMessage(t *testing.T) {
	require.Equal(t, "unauthorized", Unauthorized("nope").Error())

	bare := NewAppError(http.StatusTeapot, "TEAPOT", "short and stout", nil)
	require.Equal(t, "short and stout", bare.Error())
}

func TestConstructorStatuses(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, BadRequest("x").Status)
	require.ErrorIs(t, BadRequest("x"), ErrInvalidInput)
	require.Equal(t, http.StatusUnauthorized, Unauthorized("x").Status)
	require.Equal(t, http.StatusForbidden, Forbidden("x").Status)

	internal := InternalError(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, internal.Status)
	require.Equal(t, "boom", internal.Error())
}
