package services

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"history-guide/models"
	"history-guide/repository"
	apierrors "history-guide/utils/errors"
	"history-guide/utils/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var (
	ErrEmailRequired      = apierrors.NewAPIError("EMAIL_REQUIRED", "Enter an email address", http.StatusBadRequest)
	ErrPasswordRequired   = apierrors.NewAPIError("PASSWORD_REQUIRED", "Enter a password", http.StatusBadRequest)
	ErrInvalidCredentials = apierrors.NewAPIError("INVALID_CREDENTIALS", "Invalid email or password", http.StatusUnauthorized)
)

type AuthService struct {
	users     UserRepository
	jwtSecret string
	ttl       time.Duration
	now       func() time.Time
}

func NewAuthService(users UserRepository, jwtSecret string, ttl time.Duration) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret, ttl: ttl, now: time.Now}
}

// Session is what a successful login hands back to the client.
type Session struct {
	Token  string
	UserID string
	Role   models.Role
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkCredentials(email, password string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if password == "" {
		return ErrPasswordRequired
	}
	return nil
}

// Register creates a new STANDARD account and returns its id.
func (s *AuthService) Register(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if err := checkCredentials(email, password); err != nil {
		return "", err
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apierrors.ErrInvalidInput.WithDetails("email address is not valid")
	}
	if len(password) < minPasswordLength {
		return "", apierrors.ErrInvalidInput.WithDetails("password must be at least 6 characters")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apierrors.Wrap(err, "HASH_ERROR", "failed to hash password", http.StatusInternalServerError)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(passwordHash),
		VisitedPOIs:  []string{},
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", apierrors.ErrConflict.WithDetails("an account with this email already exists")
		}
		return "", apierrors.Unavailable(err)
	}

	logger.Zlog.Info("Registered user", zap.String("userID", user.ID))
	return user.ID, nil
}

// Login authenticates a user and returns a signed session token along with
// the role the account currently holds.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if err := checkCredentials(email, password); err != nil {
		return Session{}, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, apierrors.Unavailable(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return Session{}, apierrors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}
	return Session{Token: token, UserID: user.ID, Role: models.RoleOf(user.ID, &user)}, nil
}

// issueToken carries only the user id; the role is looked up per request.
func (s *AuthService) issueToken(userID string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userID": userID,
		"iat":    now.Unix(),
		"exp":    now.Add(s.ttl).Unix(),
	})
	return token.SignedString([]byte(s.jwtSecret))
}
