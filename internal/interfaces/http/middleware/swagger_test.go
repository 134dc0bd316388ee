package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerRouter(cfg SwaggerConfig, jwtMiddleware gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/swagger/*any", SwaggerProtection(cfg, jwtMiddleware), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func swaggerRequest(r http.Handler, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestSwaggerProtection(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		r := swaggerRouter(SwaggerConfig{Enabled: false}, nil)
		assert.Equal(t, http.StatusNotFound, swaggerRequest(r, "10.0.0.1:1234"))
	})

	t.Run("open", func(t *testing.T) {
		r := swaggerRouter(SwaggerConfig{Enabled: true}, nil)
		assert.Equal(t, http.StatusOK, swaggerRequest(r, "10.0.0.1:1234"))
	})

	t.Run("ip allow list", func(t *testing.T) {
		r := swaggerRouter(SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.1.0/24", "10.0.0.7"}}, nil)
		assert.Equal(t, http.StatusOK, swaggerRequest(r, "192.168.1.50:1234"))
		assert.Equal(t, http.StatusOK, swaggerRequest(r, "10.0.0.7:1234"))
		assert.Equal(t, http.StatusForbidden, swaggerRequest(r, "10.0.0.8:1234"))
	})

	t.Run("auth required", func(t *testing.T) {
		deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
		r := swaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true}, deny)
		assert.Equal(t, http.StatusUnauthorized, swaggerRequest(r, "10.0.0.1:1234"))
	})
}
