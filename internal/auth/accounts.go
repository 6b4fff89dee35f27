package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/2beens/ninjatraining/internal/telemetry/metrics"
	"github.com/2beens/ninjatraining/internal/telemetry/tracing"
	"github.com/2beens/ninjatraining/pkg"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=accounts_mocks_test.go -package=auth_test

const (
	TokenTypeSession  = "session"
	TokenTypeRecovery = "recovery"
)

var (
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrUnknownTokenType = errors.New("unknown token type")
)

type usersRepo interface {
	Create(ctx context.Context, user User) (*User, error)
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type sessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, createdAt time.Time) (string, error)
	Delete(ctx context.Context, token string) (bool, error)
}

type recoveryTokenIssuer interface {
	Issue(ctx context.Context, userID uuid.UUID) (string, error)
	Verify(ctx context.Context, token string) (uuid.UUID, error)
	Consume(ctx context.Context, token string) (uuid.UUID, error)
}

type Introspection struct {
	Active bool       `json:"active"`
	Type   string     `json:"type"`
	UserID *uuid.UUID `json:"userId,omitempty"`
}

type AccountsParams struct {
	Repo             usersRepo
	Sessions         sessionStore
	Checker          Checker
	Recovery         recoveryTokenIssuer
	Mailer           Mailer
	RecoveryURL      string
	PasswordHashCost int
	MetricsManager   *metrics.Manager
}

type Accounts struct {
	repo           usersRepo
	sessions       sessionStore
	checker        Checker
	recovery       recoveryTokenIssuer
	mailer         Mailer
	recoveryURL    string
	hashCost       int
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewAccounts(params AccountsParams) *Accounts {
	hashCost := params.PasswordHashCost
	if hashCost == 0 {
		hashCost = pkg.PasswordHashCost
	}
	mailer := params.Mailer
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &Accounts{
		repo:           params.Repo,
		sessions:       params.Sessions,
		checker:        params.Checker,
		recovery:       params.Recovery,
		mailer:         mailer,
		recoveryURL:    params.RecoveryURL,
		hashCost:       hashCost,
		metricsManager: params.MetricsManager,
		now:            time.Now,
	}
}

func (a *Accounts) SignUp(ctx context.Context, email, password string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.signup")
	defer func() {
		if err != nil && !errors.Is(err, ErrEmailTaken) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	hash, err := pkg.HashPasswordWithCost(password, a.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := a.repo.Create(ctx, User{
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    a.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if a.metricsManager != nil {
		a.metricsManager.CounterSignUps.Inc()
	}

	return user, nil
}

// SignIn checks the credentials and opens a new session, returning its token.
func (a *Accounts) SignIn(ctx context.Context, email, password string) (_ string, _ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.signin")
	defer func() {
		if err != nil && !errors.Is(err, ErrWrongCredentials) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	user, err := a.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrWrongCredentials
		}
		return "", nil, fmt.Errorf("get user: %w", err)
	}

	if !pkg.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrWrongCredentials
	}

	token, err := a.sessions.Create(ctx, user.ID, a.now())
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	return token, user, nil
}

func (a *Accounts) SignOut(ctx context.Context, token string) (bool, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.signout")
	defer span.End()

	return a.sessions.Delete(ctx, token)
}

func (a *Accounts) User(ctx context.Context, userID uuid.UUID) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.user")
	defer span.End()

	return a.repo.Get(ctx, userID)
}

func (a *Accounts) UpdatePassword(ctx context.Context, userID uuid.UUID, newPassword string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.updatepassword")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	hash, err := pkg.HashPasswordWithCost(newPassword, a.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := a.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// RequestPasswordReset mails a recovery link. Unknown e-mails are not reported to the caller.
func (a *Accounts) RequestPasswordReset(ctx context.Context, email string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.requestreset")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	user, err := a.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Debugf("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	token, err := a.recovery.Issue(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("issue recovery token: %w", err)
	}

	if err := a.mailer.SendPasswordRecovery(ctx, user.Email, a.recoveryLink(token)); err != nil {
		return fmt.Errorf("send recovery email: %w", err)
	}
	return nil
}

func (a *Accounts) recoveryLink(token string) string {
	params := url.Values{}
	params.Set("token", token)
	params.Set("type", TokenTypeRecovery)
	return a.recoveryURL + "?" + params.Encode()
}

func (a *Accounts) ResetPassword(ctx context.Context, recoveryToken, newPassword string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.resetpassword")
	defer func() {
		if err != nil && !errors.Is(err, ErrInvalidRecoveryToken) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	userID, err := a.recovery.Consume(ctx, recoveryToken)
	if err != nil {
		return err
	}

	return a.UpdatePassword(ctx, userID, newPassword)
}

// Introspect reports whether a token received in a URL is still usable.
func (a *Accounts) Introspect(ctx context.Context, token, tokenType string) (*Introspection, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.introspect")
	defer span.End()

	var (
		userID uuid.UUID
		err    error
	)
	switch tokenType {
	case TokenTypeRecovery:
		userID, err = a.recovery.Verify(ctx, token)
		if err != nil && !errors.Is(err, ErrInvalidRecoveryToken) {
			return nil, err
		}
	case TokenTypeSession:
		userID, err = a.checker.UserFromToken(ctx, token)
		if err != nil && !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTokenType, tokenType)
	}

	if err != nil {
		return &Introspection{Active: false, Type: tokenType}, nil
	}
	return &Introspection{Active: true, Type: tokenType, UserID: &userID}, nil
}
