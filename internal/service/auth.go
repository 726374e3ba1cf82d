package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/Skotchmaster/gastrodesk/internal/transport"
	pkg_hash "github.com/Skotchmaster/gastrodesk/pkg/hash"
	jwthelp "github.com/Skotchmaster/gastrodesk/pkg/jwt"
	"github.com/Skotchmaster/gastrodesk/pkg/logging"
	"github.com/Skotchmaster/gastrodesk/pkg/tokens"
)

const minPasswordLen = 6

type AuthService struct {
	Users  UserStore
	Tokens TokenStore

	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	Now func() time.Time
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	User         *models.User
}

func (h *AuthService) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *AuthService) accessTTL() time.Duration {
	if h.AccessTTL <= 0 {
		return 15 * time.Minute
	}
	return h.AccessTTL
}

func (h *AuthService) refreshTTL() time.Duration {
	if h.RefreshTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return h.RefreshTTL
}

func (h *AuthService) CreateAccessToken(user *models.User, accessExp time.Time) (string, error) {
	return tokens.Sign(tokens.AccessClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(h.now()),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}, h.JWTSecret)
}

// CreateRefreshToken signs a refresh token and returns the row that tracks it.
func (h *AuthService) CreateRefreshToken(user *models.User, refreshExp time.Time) (string, *models.RefreshToken, error) {
	jti := jwthelp.NewJTI()
	signed, err := tokens.Sign(tokens.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(h.now()),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			ID:        jti,
		},
	}, h.RefreshSecret)
	if err != nil {
		return "", nil, err
	}
	return signed, &models.RefreshToken{
		Token:     jwthelp.Sha256Hex(signed),
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}, nil
}

func (h *AuthService) issue(user *models.User) (*LoginResult, *models.RefreshToken, error) {
	accessExp := h.now().Add(h.accessTTL())
	access, err := h.CreateAccessToken(user, accessExp)
	if err != nil {
		return nil, nil, err
	}
	refreshExp := h.now().Add(h.refreshTTL())
	refresh, row, err := h.CreateRefreshToken(user, refreshExp)
	if err != nil {
		return nil, nil, err
	}
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		User:         user,
	}, row, nil
}

func validateNewUser(req transport.RegisterRequest) error {
	n := len(strings.TrimSpace(req.Username))
	switch {
	case n < 3 || n > 50:
		return fmt.Errorf("%w: username must be 3-50 characters", ErrValidation)
	case len(req.Password) < minPasswordLen:
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	case strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "":
		return fmt.Errorf("%w: first and last name required", ErrValidation)
	case req.Role != "" && !req.Role.Valid():
		return fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
	}
	return nil
}

func (h *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if err := validateNewUser(req); err != nil {
		return nil, err
	}
	pwHash, err := pkg_hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = models.RoleWaiter
	}
	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: pwHash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
		IsActive:     true,
	}

	created, err := h.Users.CreateUserIfNotExists(ctx, user)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "internal Server Error", "error", err)
		return nil, err
	}
	if !created {
		l.Warn("register_error", "status", 409, "reason", "user already exist")
		return nil, fmt.Errorf("%w: username %q is taken", ErrConflict, user.Username)
	}
	return user, nil
}

// Login accepts active users only. A password still stored as a legacy
// SHA-256 digest is re-hashed with bcrypt on success.
func (h *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	user, err := h.Users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login failed", "status", 401, "reason", "unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !pkg_hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login failed", "status", 401, "reason", "invalid username or password")
		return nil, ErrInvalidCredentials
	}

	if pkg_hash.IsLegacy(user.PasswordHash) {
		h.upgradeHash(ctx, user, password)
	}

	res, row, err := h.issue(user)
	if err != nil {
		l.Error("login failed", "status", 500, "error", err)
		return nil, err
	}
	if err := h.Tokens.SaveRefreshToken(ctx, row); err != nil {
		l.Error("login failed", "status", 500, "error", err)
		return nil, err
	}
	return res, nil
}

func (h *AuthService) upgradeHash(ctx context.Context, user *models.User, password string) {
	l := logging.FromContext(ctx).With("svc", "auth.upgrade_hash", "user_id", user.ID)
	newHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		l.Error("rehash_error", "error", err)
		return
	}
	if _, err := h.Users.UpdateUser(ctx, user.ID, func(u *models.User) error {
		u.PasswordHash = newHash
		return nil
	}); err != nil {
		l.Error("rehash_error", "error", err)
		return
	}
	user.PasswordHash = newHash
	l.Info("rehash_success")
}

// Refresh rotates the refresh token: the presented one is revoked and a new
// pair is issued. Reusing a rotated token fails.
func (h *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, h.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	stored, err := h.Tokens.FindRefreshByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown token", ErrInvalidRefreshToken)
		}
		return nil, err
	}
	if stored.Revoked || stored.ExpiresAt < h.now().Unix() || stored.Token != jwthelp.Sha256Hex(refreshToken) {
		l.Warn("refresh failed", "status", 401, "reason", "token expired or revoked", "user_id", stored.UserID)
		return nil, fmt.Errorf("%w: token expired or revoked", ErrInvalidRefreshToken)
	}

	user, err := h.Users.GetUser(ctx, stored.UserID)
	if err != nil {
		return nil, notFound(err, "user", stored.UserID)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user disabled", ErrInvalidRefreshToken)
	}

	res, row, err := h.issue(user)
	if err != nil {
		return nil, err
	}
	if err := h.Tokens.RotateRefreshToken(ctx, claims.ID, row); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: token already used", ErrInvalidRefreshToken)
		}
		return nil, err
	}
	return res, nil
}

func (h *AuthService) LogOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return h.Tokens.RevokeRefreshToken(ctx, jwthelp.Sha256Hex(refreshToken))
}

func (h *AuthService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	user, err := h.Users.GetUser(ctx, userID)
	if err != nil {
		return notFound(err, "user", userID)
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	newHash, err := pkg_hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = h.Users.UpdateUser(ctx, userID, func(u *models.User) error {
		u.PasswordHash = newHash
		return nil
	})
	return notFound(err, "user", userID)
}

// EnsureManager creates the bootstrap manager account when username is set
// and not yet taken.
func (h *AuthService) EnsureManager(ctx context.Context, username, password string) error {
	if username == "" {
		return nil
	}
	l := logging.FromContext(ctx).With("svc", "auth.bootstrap", "username", username)

	_, err := h.Register(ctx, transport.RegisterRequest{
		Username:  username,
		Password:  password,
		FirstName: "System",
		LastName:  "Manager",
		Role:      models.RoleManager,
	})
	switch {
	case errors.Is(err, ErrConflict):
		return nil
	case err != nil:
		return err
	}
	l.Info("bootstrap manager created")
	return nil
}
