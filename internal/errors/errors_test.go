package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestAPIError_WrapsInternal(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Internal(cause)

	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "Internal server error", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestNewValidationError_Fields(t *testing.T) {
	type form struct {
		Email    string `validate:"required,email"`
		Password string `validate:"min=6"`
	}

	v := validator.New()
	verr := v.Struct(form{Email: "nope", Password: "123"})

	apiErr := NewValidationError(verr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "must be a valid email", apiErr.Fields["email"])
	assert.Equal(t, "must be at least 6", apiErr.Fields["password"])
}

func TestNewValidationError_PlainError(t *testing.T) {
	apiErr := NewValidationError(stderrors.New("unexpected EOF"))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Nil(t, apiErr.Fields)
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "team_id", toSnake("TeamId"))
	assert.Equal(t, "start_date", toSnake("StartDate"))
}
