package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/social-feed/internal/apperr"
	"github.com/d60-Lab/social-feed/pkg/response"
)

func TestFailMapsErrorClass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		code int
	}{
		{apperr.ErrAuthRequired, http.StatusUnauthorized},
		{apperr.Malformed("empty content"), http.StatusBadRequest},
		{apperr.NotFound("post", "p1"), http.StatusNotFound},
		{apperr.Persistence("insert", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		fail(c, tc.err)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())

		var body response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Code)
	}
}
