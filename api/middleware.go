package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ashish-0314/Traffic-Management/config"
)

// tokenTTL matches the session length the clients were built around
const tokenTTL = 30 * 24 * time.Hour

// Auth issues and verifies the bearer tokens used on all private routes.
// The role claim rides inside the token so the authorization matrix never
// needs a user lookup.
type Auth struct {
	Secret []byte
}

// GenerateToken returns a signed token for the given user id and role
func (a Auth) GenerateToken(userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.Secret)
}

// Middleware adds bearer token authentication around accessing the routes
func (a Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		user, err := a.authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized",
				"url", r.URL,
				"error", err,
			)
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetUserContext(r.Context(), user)))
	})
}

func (a Auth) authenticate(r *http.Request) (UserContext, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return UserContext{}, fmt.Errorf("missing bearer token")
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.Secret, nil
	})
	if err != nil {
		return UserContext{}, fmt.Errorf("failed to parse token, %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return UserContext{}, fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	uid, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return UserContext{}, fmt.Errorf("invalid subject claim")
	}
	if role == "" {
		return UserContext{}, fmt.Errorf("missing role claim")
	}

	return UserContext{ID: uid, Role: role}, nil
}
