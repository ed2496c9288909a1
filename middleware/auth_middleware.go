package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"history-guide/models"
	apierrors "history-guide/utils/errors"
	"history-guide/utils/logger"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	bearerPrefix      = "Bearer "
	auth0BearerPrefix = "Bearer auth0|"
)

var ErrInvalidToken = apierrors.NewAPIError("INVALID_TOKEN", "Invalid or expired token", http.StatusUnauthorized)

// AuthValidator attempts to authenticate a request.
// It returns "", nil when the request carries no credentials it understands.
type AuthValidator func(r *http.Request) (string, error)

// NewAuthMiddleware attaches the user id of the first validator that accepts
// the request. Requests without credentials pass through as guests; requests
// with credentials that fail validation are rejected.
func NewAuthMiddleware(validators ...AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, validate := range validators {
				userID, err := validate(r)
				if err != nil {
					logger.Zlog.Warn("Authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
					WriteError(w, ErrInvalidToken)
					return
				}
				if userID == "" {
					continue
				}
				next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewLocalValidator accepts HS256 session tokens issued by /auth/login.
func NewLocalValidator(jwtSecret string) AuthValidator {
	return func(r *http.Request) (string, error) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) || strings.HasPrefix(authHeader, auth0BearerPrefix) {
			return "", nil
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return "", fmt.Errorf("invalid session token: %w", err)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return "", errors.New("unexpected claims type")
		}
		userID, ok := claims["userID"].(string)
		if !ok || userID == "" {
			return "", errors.New("token has no userID claim")
		}
		return userID, nil
	}
}

// NewAuth0Validator accepts Auth0 access tokens sent as "Bearer auth0|<jwt>".
func NewAuth0Validator(auth0Domain, auth0Audience string) (AuthValidator, error) {
	issuerURL, err := url.Parse("https://" + auth0Domain + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{auth0Audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT validator: %w", err)
	}

	return func(r *http.Request) (string, error) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, auth0BearerPrefix) {
			return "", nil
		}
		token, err := jwtValidator.ValidateToken(r.Context(), authHeader[len(auth0BearerPrefix):])
		if err != nil {
			return "", fmt.Errorf("invalid Auth0 token: %w", err)
		}
		claims := token.(*validator.ValidatedClaims)
		return claims.RegisteredClaims.Subject, nil
	}, nil
}

// RequireAuth rejects guests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == "" {
			WriteError(w, apierrors.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type RoleResolver interface {
	Role(ctx context.Context, userID string) (models.Role, error)
}

// RequireAdmin looks the caller's role up on every request.
func RequireAdmin(roles RoleResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			if userID == "" {
				WriteError(w, apierrors.ErrUnauthorized)
				return
			}
			role, err := roles.Role(r.Context(), userID)
			if err != nil {
				WriteError(w, err)
				return
			}
			if role != models.RoleAdmin {
				WriteError(w, apierrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
