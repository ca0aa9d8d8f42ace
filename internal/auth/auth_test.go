package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

func signToken(t *testing.T, subject, role string) string {
	t.Helper()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	assert.NoError(t, err)
	return token
}

func newTestRouter(role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	mw := NewMiddleware(testSecret)
	router.GET("/protected", mw.Require(role), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserID)})
	})
	return router
}

func TestMiddleware_ValidToken(t *testing.T) {
	router := newTestRouter(RoleUser)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1", RoleUser))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestMiddleware_MissingToken(t *testing.T) {
	router := newTestRouter(RoleUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_WrongSecret(t *testing.T) {
	router := newTestRouter(RoleUser)

	claims := &Claims{Role: RoleUser, RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_RoleChecks(t *testing.T) {
	testCases := []struct {
		name     string
		required string
		role     string
		expected int
	}{
		{name: "user on user route", required: RoleUser, role: RoleUser, expected: http.StatusOK},
		{name: "admin passes user route", required: RoleUser, role: RoleAdmin, expected: http.StatusOK},
		{name: "user blocked from admin route", required: RoleAdmin, role: RoleUser, expected: http.StatusForbidden},
		{name: "any accepts user", required: RoleAny, role: RoleUser, expected: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(tc.required)
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1", tc.role))
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.expected, w.Code)
		})
	}
}
