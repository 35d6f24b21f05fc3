package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestError_StatusFromCode(t *testing.T) {
	c, w := newContext()
	Error(c, apperrors.ErrInsufficientStock)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, apperrors.ErrCodeInsufficientStock, resp.Code)
}

func TestError_HidesInternalCause(t *testing.T) {
	c, w := newContext()
	Error(c, errors.New("dial tcp 10.0.0.1:3306: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
}

func TestCreated(t *testing.T) {
	c, w := newContext()
	Created(c, gin.H{"id": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode(t, w).Success)
}

func TestNewPageData(t *testing.T) {
	p := NewPageData([]int{1, 2}, 21, 2, 10)
	assert.Equal(t, 3, p.TotalPages)

	p = NewPageData(nil, 0, 1, 0)
	assert.Equal(t, 0, p.TotalPages)
}
