package webserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testSecret = []byte("test-secret")

func authRouter(t *testing.T) (*gin.Engine, Auth) {
	t.Helper()
	db := newTestDB(t)
	gin.SetMode(gin.TestMode)
	a := NewAuth(db, nil, testSecret, time.Hour)
	r := gin.New()
	r.POST("/v1/auth/register", a.Register)
	r.POST("/v1/auth/login", a.Login)
	r.POST("/v1/auth/logout", a.Logout)
	return r, a
}

func TestRegisterAndLogin(t *testing.T) {
	r, _ := authRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/auth/register", map[string]interface{}{
		"email":    "ada@example.com",
		"password": "correct horse",
		"username": "ada",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reg struct {
		Token  string `json:"token"`
		UserID uint64 `json:"user_id"`
		Email  string `json:"email"`
	}
	decode(t, w, &reg)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "ada@example.com", reg.Email)
	assert.NotZero(t, reg.UserID)

	w = doJSON(t, r, http.MethodPost, "/v1/auth/login", map[string]interface{}{
		"email":    "ada@example.com",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token  string `json:"token"`
		UserID uint64 `json:"user_id"`
	}
	decode(t, w, &login)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, reg.UserID, login.UserID)
}

func TestRegisterRejections(t *testing.T) {
	r, _ := authRouter(t)

	ok := doJSON(t, r, http.MethodPost, "/v1/auth/register", map[string]interface{}{
		"email": "ada@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusCreated, ok.Code)

	dup := doJSON(t, r, http.MethodPost, "/v1/auth/register", map[string]interface{}{
		"email": "ada@example.com", "password": "another pass"})
	assert.Equal(t, http.StatusConflict, dup.Code)

	bad := doJSON(t, r, http.MethodPost, "/v1/auth/register", map[string]interface{}{
		"email": "not-an-email", "password": "correct horse"})
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	short := doJSON(t, r, http.MethodPost, "/v1/auth/register", map[string]interface{}{
		"email": "bob@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, short.Code)
}

func TestIsDuplicateErr(t *testing.T) {
	assert.True(t, isDuplicateErr(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateErr(errors.New("Error 1062 (23000): Duplicate entry 'ada@example.com' for key 'users.email'")))
	assert.True(t, isDuplicateErr(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")))
	assert.False(t, isDuplicateErr(errors.New("dial tcp: connection refused")))
}

func TestLoginBadCredentials(t *testing.T) {
	r, _ := authRouter(t)

	doJSON(t, r, http.MethodPost, "/v1/auth/register", map[string]interface{}{
		"email": "ada@example.com", "password": "correct horse"})

	wrong := doJSON(t, r, http.MethodPost, "/v1/auth/login", map[string]interface{}{
		"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)

	unknown := doJSON(t, r, http.MethodPost, "/v1/auth/login", map[string]interface{}{
		"email": "ghost@example.com", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String(),
		"unknown email and wrong password must be indistinguishable")
}

func TestLogoutIdempotent(t *testing.T) {
	r, _ := authRouter(t)

	// No token at all still succeeds.
	w := doJSON(t, r, http.MethodPost, "/v1/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Garbage token too.
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTMiddleware(testSecret, nil))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": userID(c)})
	})

	token, err := issueToken(42, testSecret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"uid":42}`, rec.Body.String())

	// Missing and malformed headers are rejected.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Token signed with a different secret.
	other, err := issueToken(42, []byte("other-secret"), time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Expired token.
	expired, err := issueToken(42, testSecret, -time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"))
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "limits are per client")
}
