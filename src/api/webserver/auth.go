package webserver

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/branchline/branchline/src/api/data"
	"github.com/branchline/branchline/src/api/types"
)

type Auth struct {
	db     *gorm.DB
	rdb    *redis.Client
	secret []byte
	ttl    time.Duration
}

func NewAuth(db *gorm.DB, rdb *redis.Client, secret []byte, ttl time.Duration) Auth {
	return Auth{db: db, rdb: rdb, secret: secret, ttl: ttl}
}

func (a Auth) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email,max=255"`
		Password string `json:"password" binding:"required,min=8,max=72"`
		Username string `json:"username" binding:"max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	var existing types.User
	if err := a.db.First(&existing, "email = ?", req.Email).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"err": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to hash password"})
		return
	}

	user := types.User{Email: req.Email, Username: req.Username, Password: string(hash)}
	if err := a.db.Create(&user).Error; err != nil {
		// Two registrations racing past the pre-check land here; the loser
		// hits the unique index and still gets the conflict response.
		if isDuplicateErr(err) {
			c.JSON(http.StatusConflict, gin.H{"err": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	token, err := issueToken(user.ID, a.secret, a.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":   token,
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// isDuplicateErr recognizes a unique-index violation across drivers.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint")
}

func (a Auth) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	// Same rejection for unknown email and wrong password.
	var user types.User
	if err := a.db.First(&user, "email = ?", req.Email).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "invalid credentials"})
		return
	}

	token, err := issueToken(user.ID, a.secret, a.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// Logout revokes the presented token if there is one. Idempotent: a missing,
// malformed or already-expired token still gets a 200.
func (a Auth) Logout(c *gin.Context) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}

	tok, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) { return a.secret, nil })
	if err != nil || !tok.Valid {
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}

	claims, _ := tok.Claims.(jwt.MapClaims)
	jti, _ := claims["jti"].(string)
	exp, _ := claims["exp"].(float64)
	if jti != "" && a.rdb != nil {
		ttl := time.Until(time.Unix(int64(exp), 0))
		if err := data.RevokeToken(c, a.rdb, jti, ttl); err != nil {
			log.Printf("logout: revoke %s: %v", jti, err)
			c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to revoke token"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
