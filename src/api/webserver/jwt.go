package webserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/branchline/branchline/src/api/data"
)

// Context keys set by the auth middleware.
const (
	ctxUserID   = "uid"
	ctxTokenID  = "jti"
	ctxTokenExp = "exp"
)

// issueToken mints an HS256 bearer token. The jti claim lets logout revoke a
// token before its expiry.
func issueToken(userID uint64, secret []byte, ttl time.Duration) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": userID,
		"jti": uuid.NewString(),
		"exp": time.Now().Add(ttl).Unix(),
	})
	return tok.SignedString(secret)
}

func JWTMiddleware(secret []byte, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		tok, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) { return secret, nil })
		if err != nil || !tok.Valid {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		jti, _ := claims["jti"].(string)
		if jti != "" && rdb != nil {
			revoked, err := data.TokenRevoked(c, rdb, jti)
			if err != nil || revoked {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
		}

		uid, ok := claims["uid"].(float64)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		exp, _ := claims["exp"].(float64)

		c.Set(ctxUserID, uint64(uid))
		c.Set(ctxTokenID, jti)
		c.Set(ctxTokenExp, int64(exp))
		c.Next()
	}
}

func userID(c *gin.Context) uint64 {
	v, _ := c.Get(ctxUserID)
	id, _ := v.(uint64)
	return id
}
