package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func perform(t *testing.T, fn gin.HandlerFunc, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", nil)
	if origin != "" {
		c.Request.Header.Set("Origin", origin)
	}
	fn(c)
	return w
}

func TestNewAllowsWhitelistedOrigin(t *testing.T) {
	fn := New([]string{"https://admin.example.org/"})

	w := perform(t, fn, http.MethodGet, "https://admin.example.org")
	assert.Equal(t, "https://admin.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestNewRejectsUnknownOrigin(t *testing.T) {
	fn := New([]string{"https://admin.example.org"})

	w := perform(t, fn, http.MethodGet, "https://evil.example.org")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewEmptyWhitelistAllowsAll(t *testing.T) {
	fn := New(nil)

	w := perform(t, fn, http.MethodGet, "https://anywhere.example.org")
	assert.Equal(t, "https://anywhere.example.org", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewAnswersPreflight(t *testing.T) {
	fn := New(nil)

	w := perform(t, fn, http.MethodOptions, "https://admin.example.org")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, allowedMethods, w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, allowedHeaders, w.Header().Get("Access-Control-Allow-Headers"))
}
