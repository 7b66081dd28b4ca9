package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainauth "github.com/NordCoder/Ratewatch/internal/domain/auth"
	"github.com/NordCoder/Ratewatch/internal/domain/user"
	pg "github.com/NordCoder/Ratewatch/internal/repository/postgres"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password is too weak")
)

const minPasswordLen = 8

type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

type Tokens struct {
	Access  string
	Refresh string
}

type Usecase struct {
	users user.Repo
	rt    domainauth.RefreshTokenRepo
	cfg   Config
}

func NewUseCase(users user.Repo, rt domainauth.RefreshTokenRepo, cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	return &Usecase{users: users, rt: rt, cfg: cfg}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (u *Usecase) SignUp(ctx context.Context, email, password string) (*user.User, Tokens, error) {
	email = normalizeEmail(email)
	if len(password) < minPasswordLen {
		return nil, Tokens{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, Tokens{}, fmt.Errorf("hash password: %w", err)
	}
	now := u.cfg.Now()
	newUser := &user.User{Email: email, Password: string(hash), CreatedAt: now, UpdatedAt: now}
	if err := u.users.Create(ctx, newUser); err != nil {
		if errors.Is(err, pg.ErrConflict) {
			return nil, Tokens{}, ErrEmailExists
		}
		return nil, Tokens{}, fmt.Errorf("create user: %w", err)
	}
	tokens, err := u.issueTokens(ctx, newUser.ID)
	if err != nil {
		return nil, Tokens{}, err
	}
	return newUser, tokens, nil
}

func (u *Usecase) SignIn(ctx context.Context, email, password string) (*user.User, Tokens, error) {
	rec, err := u.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pg.ErrNotFound) {
			return nil, Tokens{}, ErrInvalidCredentials
		}
		return nil, Tokens{}, fmt.Errorf("get user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte(password)) != nil {
		return nil, Tokens{}, ErrInvalidCredentials
	}
	tokens, err := u.issueTokens(ctx, rec.ID)
	if err != nil {
		return nil, Tokens{}, err
	}
	return rec, tokens, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair issued.
func (u *Usecase) Refresh(ctx context.Context, raw string) (Tokens, int64, error) {
	if raw == "" {
		return Tokens{}, 0, ErrInvalidCredentials
	}
	rec, err := u.rt.FindValid(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, pg.ErrNotFound) {
			return Tokens{}, 0, ErrInvalidCredentials
		}
		return Tokens{}, 0, fmt.Errorf("find refresh token: %w", err)
	}
	if rec.Revoked || !rec.ExpiresAt.After(u.cfg.Now()) {
		return Tokens{}, 0, ErrInvalidCredentials
	}
	if err := u.rt.Revoke(ctx, rec.TokenHash); err != nil {
		return Tokens{}, 0, fmt.Errorf("revoke refresh token: %w", err)
	}
	tokens, err := u.issueTokens(ctx, rec.UserID)
	if err != nil {
		return Tokens{}, 0, err
	}
	return tokens, rec.UserID, nil
}

func (u *Usecase) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return u.rt.Revoke(ctx, HashToken(raw))
}

func (u *Usecase) ParseAccess(token string) (int64, error) {
	id, err := parseAccess(u.cfg.Secret, token, u.cfg.Now)
	if err != nil {
		return 0, ErrInvalidCredentials
	}
	return id, nil
}

func (u *Usecase) RefreshTTL() time.Duration { return u.cfg.RefreshTTL }

func (u *Usecase) issueTokens(ctx context.Context, userID int64) (Tokens, error) {
	now := u.cfg.Now()
	access, err := signAccess(u.cfg.Secret, userID, now, u.cfg.AccessTTL)
	if err != nil {
		return Tokens{}, fmt.Errorf("sign access: %w", err)
	}
	refreshRaw, err := GenerateRawToken(32)
	if err != nil {
		return Tokens{}, fmt.Errorf("gen refresh: %w", err)
	}
	rec := &domainauth.RefreshToken{
		UserID:    userID,
		TokenHash: HashToken(refreshRaw),
		IssuedAt:  now,
		ExpiresAt: now.Add(u.cfg.RefreshTTL),
	}
	if err := u.rt.Create(ctx, rec); err != nil {
		return Tokens{}, fmt.Errorf("save refresh: %w", err)
	}
	return Tokens{Access: access, Refresh: refreshRaw}, nil
}
