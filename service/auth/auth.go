// Package auth is the Auth Service (C4): signup, login, logout,
// refresh, session_check, lookup_user, request_reset and confirm_reset,
// composing the durable log (C1), the token service (C3) and password
// hashing. Grounded on LessUp-ChatRoom/internal/auth/auth.go's
// bcrypt+JWT shape, generalized to the store/cache/token split this
// module uses instead of a single gorm.DB.
package auth

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"chatserver/module/chat/model"
	"chatserver/service/store"
	"chatserver/service/token"
	"chatserver/tools/errs"
	"chatserver/tools/ids"
	"chatserver/tools/security"
)

var validate = validator.New()

type Service struct {
	store   *store.Store
	tokens  *token.Service
	deliver func(email, resetToken string) // reset-token delivery hook
}

// New builds an auth service. deliver, if non-nil, is invoked with a
// freshly issued reset token so an operator can wire it to an email
// sender; leaving it nil is valid — request_reset still runs its full
// silent-success sequence, it just has nowhere to send the token.
func New(st *store.Store, tk *token.Service, deliver func(email, resetToken string)) *Service {
	return &Service{store: st, tokens: tk, deliver: deliver}
}

type SignupInput struct {
	Username string `validate:"required,min=3,max=50"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (model.User, token.Pair, error) {
	if err := validate.Struct(in); err != nil {
		return model.User{}, token.Pair{}, validationError(err)
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return model.User{}, token.Pair{}, err
	}

	u := model.User{
		ID:           ids.New(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if err == store.ErrConflict {
			return model.User{}, token.Pair{}, errs.New(errs.Conflict, "username or email already in use")
		}
		return model.User{}, token.Pair{}, err
	}

	pair, err := s.tokens.IssuePair(ctx, u)
	if err != nil {
		return model.User{}, token.Pair{}, err
	}
	return u, pair, nil
}

// Login accepts a username or email as identifier per spec §4.2 and
// returns an identical error for unknown-user and wrong-password.
func (s *Service) Login(ctx context.Context, identifier, password string) (model.User, token.Pair, error) {
	invalid := errs.New(errs.AuthInvalid, "invalid credentials")

	u, err := s.store.GetUserByUsernameOrEmail(ctx, identifier)
	if err == store.ErrNotFound {
		// still run a bcrypt comparison against a fixed hash so the
		// unknown-user path takes roughly the same time as a wrong
		// password on a real account.
		security.ComparePassword(dummyHash, password)
		return model.User{}, token.Pair{}, invalid
	}
	if err != nil {
		return model.User{}, token.Pair{}, err
	}
	if !security.ComparePassword(u.PasswordHash, password) {
		return model.User{}, token.Pair{}, invalid
	}

	pair, err := s.tokens.IssuePair(ctx, u)
	if err != nil {
		return model.User{}, token.Pair{}, err
	}
	return u, pair, nil
}

// dummyHash is a bcrypt hash of an unreachable password, used only to
// give Login's unknown-user branch bcrypt-comparable latency.
var dummyHash, _ = security.HashPassword("not-a-real-password-thats-only-used-for-timing")

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	return s.tokens.Refresh(ctx, refreshToken)
}

type SessionInfo struct {
	UserID    string
	Username  string
	Role      string
	ExpiresAt time.Time
}

func (s *Service) SessionCheck(accessToken string) (SessionInfo, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return SessionInfo{}, err
	}
	return SessionInfo{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      claims.Role,
		ExpiresAt: time.Unix(claims.ExpireAt, 0),
	}, nil
}

type UserRef struct {
	UserID      string
	DisplayName string
}

func (s *Service) LookupUser(ctx context.Context, username string) (UserRef, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err == store.ErrNotFound {
		return UserRef{}, errs.New(errs.NotFound, "no such user")
	}
	if err != nil {
		return UserRef{}, err
	}
	return UserRef{UserID: u.ID, DisplayName: u.Username}, nil
}

// RequestReset always returns nil; whether the email exists never
// leaks to the caller (spec §4.1).
func (s *Service) RequestReset(ctx context.Context, email string) error {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil
	}
	raw, err := s.tokens.IssueResetToken(ctx, u.ID)
	if err != nil {
		return nil
	}
	if s.deliver != nil {
		s.deliver(u.Email, raw)
	}
	return nil
}

func (s *Service) ConfirmReset(ctx context.Context, resetToken, newPassword string) error {
	if len(newPassword) < 8 {
		return errs.New(errs.ValidationError, "password too short").WithDetail("password", "must be at least 8 characters")
	}
	userID, err := s.tokens.RedeemResetToken(ctx, resetToken)
	if err != nil {
		return err
	}
	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.store.UpdatePasswordHash(ctx, userID, hash)
}

func validationError(err error) *errs.CodeError {
	ce := errs.New(errs.ValidationError, "validation failed")
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			ce = ce.WithDetail(fe.Field(), fe.Tag())
		}
	}
	return ce
}
