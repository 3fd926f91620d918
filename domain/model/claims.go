package model

import "github.com/golang-jwt/jwt"

// OperatorClaims are carried by the JWT protecting the admin API group.
type OperatorClaims struct {
	UserName string `json:"user_name"`
	jwt.StandardClaims
}
