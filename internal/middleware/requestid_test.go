package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestIDEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequestIDPropagatesValidHeader(t *testing.T) {
	r := requestIDEngine()
	inbound := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, inbound)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, inbound, w.Header().Get(HeaderXRequestID))
}

func TestRequestIDMintsOnMissingOrInvalidHeader(t *testing.T) {
	r := requestIDEngine()

	for _, inbound := range []string{"", "not-a-uuid", "<script>alert(1)</script>"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if inbound != "" {
			req.Header.Set(HeaderXRequestID, inbound)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		out := w.Header().Get(HeaderXRequestID)
		require.NotEmpty(t, out)
		assert.NotEqual(t, inbound, out)
		_, err := uuid.Parse(out)
		assert.NoError(t, err)
	}
}
