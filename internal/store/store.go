package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidUser indicates validation failure for signup data.
	ErrInvalidUser = errors.New("invalid user")
	// ErrUserExists signals the username is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthorized indicates an invalid, expired, or revoked session.
	ErrUnauthorized = errors.New("unauthorized")

	dummyPasswordHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")
)

// sessionTTL bounds how long a login token stays valid.
const sessionTTL = 30 * 24 * time.Hour

// Store provides persistence backed by Postgres.
type Store struct {
	db        *sql.DB
	jwtSecret []byte
}

// New sets up a Store using the provided database handle and token signing secret.
func New(db *sql.DB, jwtSecret string) *Store {
	return &Store{db: db, jwtSecret: []byte(jwtSecret)}
}

// User describes an account as exposed to the profile endpoint.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateUser registers a new user.
func (s *Store) CreateUser(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidUser)
	}
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidUser)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
	`, username, hash); err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// Authenticate validates credentials and returns a signed session token.
func (s *Store) Authenticate(ctx context.Context, username, password string) (string, error) {
	var (
		userID int64
		hash   []byte
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash
		FROM users
		WHERE username = $1
	`, username).Scan(&userID, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn comparable time so unknown usernames are not distinguishable.
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	tokenID := uuid.New()
	now := time.Now().UTC()
	expiresAt := now.Add(sessionTTL)

	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"jti": tokenID.String(),
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token_id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, tokenID.String(), userID, expiresAt); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	return signed, nil
}

// DeleteSession revokes the session behind the token. Revoking an already
// invalid token is not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	tokenID, err := s.parseToken(token)
	if err != nil {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE token_id = $1
	`, tokenID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// UserByToken returns the profile of the authenticated user.
func (s *Store) UserByToken(ctx context.Context, token string) (User, error) {
	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return User{}, err
	}

	var user User
	err = s.db.QueryRowContext(ctx, `
		SELECT id, username, created_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUnauthorized
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	return user, nil
}

// UserIDByToken verifies the token signature and resolves its live session.
func (s *Store) UserIDByToken(ctx context.Context, token string) (int64, error) {
	tokenID, err := s.parseToken(token)
	if err != nil {
		return 0, ErrUnauthorized
	}

	var userID int64
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id
		FROM sessions
		WHERE token_id = $1 AND expires_at > NOW()
	`, tokenID).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUnauthorized
		}
		return 0, fmt.Errorf("lookup session: %w", err)
	}

	return userID, nil
}

// parseToken verifies the JWT and returns the session identifier it carries.
func (s *Store) parseToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrUnauthorized
	}
	tokenID, ok := claims["jti"].(string)
	if !ok || tokenID == "" {
		return "", ErrUnauthorized
	}

	return tokenID, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
