package accounts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/aristath/papertrade/internal/domain"
)

const (
	minPasswordLength = 8
	tokenLifetime     = 24 * time.Hour
)

// Service handles registration and login.
type Service struct {
	repo         *Repository
	jwtSecret    []byte
	startingCash decimal.Decimal
	log          zerolog.Logger
}

// NewService creates a new account service. startingCash is credited to every
// new account on registration.
func NewService(repo *Repository, jwtSecret string, startingCash decimal.Decimal, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		jwtSecret:    []byte(jwtSecret),
		startingCash: startingCash,
		log:          log.With().Str("service", "accounts").Logger(),
	}
}

// Register creates a new account and returns it. The password is stored as a
// bcrypt hash; the confirmation must match the password exactly.
func (s *Service) Register(username, password, confirmation string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.NewValidationError("username", "must not be blank")
	}
	if password == "" {
		return nil, domain.NewValidationError("password", "must not be blank")
	}
	if len(password) < minPasswordLength {
		return nil, domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if password != confirmation {
		return nil, domain.NewValidationError("confirmation", "does not match password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.repo.Create(username, string(hash), s.startingCash)
	if err != nil {
		return nil, err
	}

	return &domain.Account{
		ID:       userID,
		Username: username,
		Cash:     s.startingCash,
	}, nil
}

// Login verifies the credentials and returns a signed session token. A bad
// username and a bad password both return domain.ErrInvalidCredentials.
func (s *Service) Login(username, password string) (string, *domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	userID, hash, err := s.repo.PasswordHash(username)
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.GetByID(userID)
	if err != nil {
		return "", nil, err
	}
	if account == nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.issueToken(userID)
	if err != nil {
		return "", nil, err
	}

	s.log.Info().Str("username", username).Int64("user_id", userID).Msg("User logged in")
	return token, account, nil
}

// VerifyToken validates a session token and returns the user id it carries.
func (s *Service) VerifyToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, domain.ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, domain.ErrInvalidCredentials
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, domain.ErrInvalidCredentials
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return 0, domain.ErrInvalidCredentials
	}

	return userID, nil
}

func (s *Service) issueToken(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}
