package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"robopost/domain/model"
)

// Auth guards the operator API with a bearer JWT signed by SECRET_KEY.
func Auth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		secretKey := os.Getenv("SECRET_KEY")
		authorization := ctx.Request.Header.Get("Authorization")
		if authorization == "" {
			abort(ctx, "Unauthorized")
			return
		}
		auth := strings.Split(authorization, "Bearer ")
		if len(auth) != 2 {
			abort(ctx, "Unauthorized")
			return
		}
		claims, token, err := getClaim(auth[1], secretKey)
		if err != nil || !token.Valid {
			abort(ctx, reason(err))
			return
		}
		ctx.Set("operator", claims.UserName)
		ctx.Next()
	}
}

func abort(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}

func reason(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		}
		if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			// Token is either expired or not active yet
			return "Timing is everything"
		}
		return fmt.Sprintf("Couldn't handle this token:%v", err)
	}
	return "Unauthorized"
}

func getClaim(raw, secretKey string) (model.OperatorClaims, *jwt.Token, error) {
	var claims model.OperatorClaims
	token, err := jwt.ParseWithClaims(
		raw,
		&claims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		},
	)
	return claims, token, err
}
