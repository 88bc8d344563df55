package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHelpers(t *testing.T) {
	v := Validation("content is required")
	n := NotFound("note %d", 7)
	tr := Transient("create note", http.StatusInternalServerError, errors.New("boom"))

	assert.True(t, IsValidation(v))
	assert.False(t, IsNotFound(v))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", n)))
	assert.True(t, IsTransient(tr))
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "note 7", NotFound("note %d", 7).Error())
	assert.Equal(t, "create note: boom", Transient("create note", 0, errors.New("boom")).Error())
	assert.Equal(t, "INTERNAL", (&Error{Code: CodeInternal}).Error())
}

func TestCodeAndStatus(t *testing.T) {
	tr := fmt.Errorf("push: %w", Transient("create note", http.StatusBadGateway, nil))
	assert.Equal(t, CodeTransient, CodeOf(tr))
	assert.Equal(t, http.StatusBadGateway, StatusOf(tr))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("x")))
	assert.Equal(t, 0, StatusOf(errors.New("x")))

	assert.Equal(t, http.StatusBadRequest, CodeValidation.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, CodeNotFound.HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, CodeTransient.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, CodeInternal.HTTPStatus())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transient("list notes", 0, cause)
	assert.ErrorIs(t, err, cause)
}
