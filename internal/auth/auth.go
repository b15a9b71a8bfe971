package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Umer-Fazal/pharmacore/internal/domain"
	"github.com/Umer-Fazal/pharmacore/internal/mailer"
	"github.com/Umer-Fazal/pharmacore/internal/repo/postgres"
	"github.com/Umer-Fazal/pharmacore/internal/secrets"
	"github.com/Umer-Fazal/pharmacore/internal/session"
	"github.com/Umer-Fazal/pharmacore/pkg/events"
	"github.com/Umer-Fazal/pharmacore/pkg/logger"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses cannot be used to probe which emails exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrDeliveryFailed means the login code could not be sent; no pending
	// state is left behind and the user can retry from the start.
	ErrDeliveryFailed = errors.New("could not send the login code")
	// ErrNoPendingAuth means a code was submitted without a live login
	// attempt, e.g. a replay after the flow already finished.
	ErrNoPendingAuth   = errors.New("no login attempt in progress")
	ErrExpired         = errors.New("the login code has expired")
	ErrTooManyAttempts = errors.New("too many incorrect codes")
	ErrIncorrectCode   = errors.New("incorrect login code")

	ErrUnauthenticated = errors.New("not signed in")
	ErrForbidden       = errors.New("insufficient role")
)

// LoginOutcome reports where a login step left the caller. After BeginLogin
// either Authenticated or OTPRequired is set; after VerifyOTP only
// Authenticated. Session is the live session, which may have a new id after
// regeneration.
type LoginOutcome struct {
	Authenticated bool
	OTPRequired   bool
	Route         domain.PostLoginRoute
	Session       *session.Session
}

// Service drives the login state machine: anonymous, password-verified
// (pending code) and authenticated. All intermediate state lives on the
// session; nothing is written to the database during login.
type Service struct {
	accounts    postgres.AccountRepo
	sessions    *session.Store
	mailer      mailer.Service
	bus         events.Publisher
	otpTTL      time.Duration
	maxAttempts int
}

func NewService(accounts postgres.AccountRepo, sessions *session.Store, m mailer.Service, bus events.Publisher, otpTTL time.Duration, maxAttempts int) *Service {
	return &Service{
		accounts:    accounts,
		sessions:    sessions,
		mailer:      m,
		bus:         bus,
		otpTTL:      otpTTL,
		maxAttempts: maxAttempts,
	}
}

// BeginLogin checks the password and either finalizes the session (roles
// without a second factor) or issues a one-time code. The code is emailed
// before any pending state is stored, so a delivery failure leaves the
// session exactly as it was.
func (s *Service) BeginLogin(ctx context.Context, sess *session.Session, req domain.LoginRequest) (*LoginOutcome, error) {
	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}
	ok, err := secrets.VerifyPassword(req.Password, account.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !account.Role.RequiresSecondFactor() {
		return s.finalize(ctx, sess, account, req.RegisterNextUser)
	}

	code, err := secrets.GenerateOTP()
	if err != nil {
		return nil, err
	}
	hash, err := secrets.HashOTP(code)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendLoginCode(ctx, account.Email, code); err != nil {
		logger.ErrorContext(ctx, "Failed to send login code", "email", account.Email, "error", err)
		return nil, ErrDeliveryFailed
	}

	sess.Identity = nil
	sess.PendingAuth = &domain.PendingAuth{
		UserID:           account.ID,
		Email:            account.Email,
		Role:             account.Role,
		OTPHash:          hash,
		ExpiresAt:        time.Now().Add(s.otpTTL),
		RegisterNextUser: req.RegisterNextUser,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	if err := s.bus.Publish(ctx, events.LoginCodeIssued, events.LoginCodeIssuedEvent{
		Email:    account.Email,
		Role:     string(account.Role),
		IssuedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish login code event", "error", err)
	}
	if err := s.bus.Publish(ctx, events.NotifySend, events.NotifySendEvent{
		Channel:   "email",
		Recipient: account.Email,
		Template:  "login_code",
		QueuedAt:  time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish notification event", "error", err)
	}

	return &LoginOutcome{OTPRequired: true, Session: sess}, nil
}

// VerifyOTP completes a pending login. Expiry and attempt exhaustion are
// terminal: the pending state is cleared and the user must start over.
func (s *Service) VerifyOTP(ctx context.Context, sess *session.Session, code string) (*LoginOutcome, error) {
	pending := sess.PendingAuth
	if pending == nil {
		return nil, ErrNoPendingAuth
	}

	if pending.Expired(time.Now()) {
		sess.PendingAuth = nil
		if err := s.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	pending.Attempts++
	if pending.Attempts > s.maxAttempts {
		sess.PendingAuth = nil
		if err := s.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
		return nil, ErrTooManyAttempts
	}

	if !secrets.CheckOTP(code, pending.OTPHash) {
		if err := s.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
		return nil, ErrIncorrectCode
	}

	account := &domain.Account{ID: pending.UserID, Email: pending.Email, Role: pending.Role}
	return s.finalize(ctx, sess, account, pending.RegisterNextUser)
}

// finalize promotes the session to authenticated. The id is regenerated on
// every privilege escalation so a pre-login id can never name a logged-in
// session.
func (s *Service) finalize(ctx context.Context, sess *session.Session, account *domain.Account, registerNext bool) (*LoginOutcome, error) {
	sess.PendingAuth = nil
	sess.Identity = &domain.Identity{
		UserID: account.ID,
		Email:  account.Email,
		Role:   account.Role,
	}
	fresh, err := s.sessions.Regenerate(ctx, sess)
	if err != nil {
		return nil, err
	}

	if err := s.bus.Publish(ctx, events.UserLoggedIn, events.UserLoggedInEvent{
		UserID:   account.ID,
		Email:    account.Email,
		Role:     string(account.Role),
		LoggedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish login event", "error", err)
	}

	return &LoginOutcome{
		Authenticated: true,
		Route:         domain.RouteFor(account.Role, registerNext),
		Session:       fresh,
	}, nil
}

// Logout destroys the session outright. Logging out an anonymous session is
// not an error.
func (s *Service) Logout(ctx context.Context, sess *session.Session) error {
	return s.sessions.Delete(ctx, sess.ID)
}

// RequireRole gates an operation on an authenticated identity with one of
// the given roles. With no roles listed any authenticated identity passes.
func RequireRole(sess *session.Session, roles ...domain.Role) error {
	if sess == nil || !sess.Authenticated() {
		return ErrUnauthenticated
	}
	if len(roles) == 0 {
		return nil
	}
	for _, role := range roles {
		if sess.Identity.Role == role {
			return nil
		}
	}
	return ErrForbidden
}
