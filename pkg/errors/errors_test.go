package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClonesMatchTheirSentinel(t *testing.T) {
	err := fmt.Errorf("load school: %w", Clone(ErrNotFound, "school not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "school not found", FromError(err).Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestWrapItemisesValidationFailures(t *testing.T) {
	type submission struct {
		SchoolID string `validate:"required"`
		Remarks  string `validate:"max=3"`
	}
	err := validator.New().Struct(submission{Remarks: "too long"})
	require.Error(t, err)

	appErr := Wrap(err, ErrValidation.Code, ErrValidation.Status, "invalid submission")

	assert.Equal(t, map[string]string{"school_id": "required", "remarks": "max=3"}, appErr.Details)
	assert.Nil(t, Wrap(errors.New("db down"), ErrInternal.Code, ErrInternal.Status, "x").Details)
}
