package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ErlanBelekov/credential-service/internal/domain"
	"github.com/ErlanBelekov/credential-service/internal/email"
	"github.com/ErlanBelekov/credential-service/internal/metrics"
	"github.com/ErlanBelekov/credential-service/internal/otp"
	"github.com/ErlanBelekov/credential-service/internal/repository"
	"github.com/ErlanBelekov/credential-service/internal/token"
)

// Frontend pages that mailed links point at.
const (
	verifyPagePath = "/verifyemail"
	resetPagePath  = "/resetPass"
)

// SecretHasher is satisfied by *secret.Hasher.
type SecretHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
	// Burn spends the same work as Verify without a real hash.
	Burn(ctx context.Context, plaintext string)
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Name      string
}

type CredentialUsecase struct {
	identities   repository.IdentityRepository
	codes        *otp.Issuer
	hasher       SecretHasher
	sessions     *token.SessionService
	resets       *token.ResetService
	mailer       email.Sender
	frontendHost string
	validate     *validator.Validate
	logger       *slog.Logger
}

func NewCredentialUsecase(
	identities repository.IdentityRepository,
	codes *otp.Issuer,
	hasher SecretHasher,
	sessions *token.SessionService,
	resets *token.ResetService,
	mailer email.Sender,
	frontendHost string,
	logger *slog.Logger,
) *CredentialUsecase {
	return &CredentialUsecase{
		identities:   identities,
		codes:        codes,
		hasher:       hasher,
		sessions:     sessions,
		resets:       resets,
		mailer:       mailer,
		frontendHost: strings.TrimRight(frontendHost, "/"),
		validate:     validator.New(),
		logger:       logger.With("component", "credential"),
	}
}

// Register creates an unverified identity and mails it a verification code.
// When only the delivery fails, the created identity is returned together
// with an error wrapping domain.ErrDeliveryFailed.
func (u *CredentialUsecase) Register(ctx context.Context, emailAddr, name, secret string) (identity *domain.Identity, err error) {
	defer func() { observe("register", err) }()

	emailAddr = domain.NormalizeEmail(emailAddr)
	name = strings.TrimSpace(name)

	if err := u.validate.Var(emailAddr, "required,email,max=254"); err != nil {
		return nil, fmt.Errorf("%w: email address is invalid", domain.ErrValidation)
	}
	if err := u.validate.Var(name, "required,max=100"); err != nil {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if len(secret) < domain.MinSecretLength {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrSecretTooShort)
	}

	// Checked before hashing so duplicates don't pay for bcrypt. Create still
	// reports a duplicate for concurrent registrations.
	if _, err := u.identities.FindByEmail(ctx, emailAddr); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, fmt.Errorf("find identity: %w", err)
	}

	hash, err := u.hasher.Hash(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	identity, err = u.identities.Create(ctx, emailAddr, name, hash)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}
	u.logger.InfoContext(ctx, "identity registered", "identity_id", identity.ID)

	if err := u.sendCode(ctx, identity); err != nil {
		return identity, err
	}
	return identity, nil
}

// VerifyEmail checks code for the identity owning emailAddr. A wrong or
// stale code causes a fresh one to be mailed, and the specific failure is
// returned so the caller can ask for the new code.
func (u *CredentialUsecase) VerifyEmail(ctx context.Context, emailAddr, code string) (err error) {
	defer func() { observe("verify_email", err) }()

	identity, err := u.identities.FindByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return err
		}
		return fmt.Errorf("find identity: %w", err)
	}
	if identity.Verified {
		return domain.ErrAlreadyVerified
	}

	result, err := u.codes.Validate(ctx, identity.ID, code)
	if err != nil {
		return err
	}

	switch result {
	case otp.Valid:
		if _, err := u.identities.MarkVerified(ctx, identity.ID); err != nil {
			return fmt.Errorf("mark verified: %w", err)
		}
		if err := u.codes.PurgeAll(ctx, identity.ID); err != nil {
			u.logger.WarnContext(ctx, "purge verification codes failed",
				"identity_id", identity.ID,
				"error", err,
			)
		}
		u.logger.InfoContext(ctx, "email verified", "identity_id", identity.ID)
		return nil

	default:
		failure := domain.ErrCodeMismatch
		if result == otp.Expired {
			failure = domain.ErrCodeExpired
		}
		if err := u.sendCode(ctx, identity); err != nil {
			if errors.Is(err, domain.ErrDeliveryFailed) {
				return errors.Join(failure, err)
			}
			return err
		}
		return failure
	}
}

// ResendVerificationCode mails a fresh code, superseding any pending one.
func (u *CredentialUsecase) ResendVerificationCode(ctx context.Context, emailAddr string) (err error) {
	defer func() { observe("resend_code", err) }()

	identity, err := u.identities.FindByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return err
		}
		return fmt.Errorf("find identity: %w", err)
	}
	if identity.Verified {
		return domain.ErrAlreadyVerified
	}
	return u.sendCode(ctx, identity)
}

// Login checks the secret and mints a session token. Unknown emails and
// wrong secrets both report domain.ErrInvalidCredentials.
func (u *CredentialUsecase) Login(ctx context.Context, emailAddr, secret string) (res *LoginResult, err error) {
	defer func() { observe("login", err) }()

	identity, err := u.identities.FindByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			u.hasher.Burn(ctx, secret)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	if !identity.Verified {
		return nil, domain.ErrUnverified
	}

	ok, err := u.hasher.Verify(ctx, secret, identity.SecretHash)
	if err != nil {
		return nil, fmt.Errorf("verify secret: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	raw, expiresAt, err := u.sessions.Issue(identity)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: raw, ExpiresAt: expiresAt, Name: identity.Name}, nil
}

// RequestPasswordReset mails a reset link for the identity owning emailAddr.
func (u *CredentialUsecase) RequestPasswordReset(ctx context.Context, emailAddr string) (err error) {
	defer func() { observe("reset_request", err) }()

	identity, err := u.identities.FindByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return err
		}
		return fmt.Errorf("find identity: %w", err)
	}

	raw, err := u.resets.Issue(identity)
	if err != nil {
		return err
	}

	link := u.frontendHost + resetPagePath + "/" + url.PathEscape(identity.ID) + "/" + url.PathEscape(raw)
	body := email.PasswordResetBody(identity.Name, link, token.ResetTTL)
	if err := u.mailer.Send(ctx, identity.Email, email.PasswordResetSubject, body); err != nil {
		return deliveryError(err)
	}
	u.logger.InfoContext(ctx, "password reset link sent", "identity_id", identity.ID)
	return nil
}

// ConfirmPasswordReset sets a new secret for identityID using a reset token.
// A token stops validating once the secret it was issued against changes.
func (u *CredentialUsecase) ConfirmPasswordReset(ctx context.Context, identityID, rawToken, secret, confirm string) (err error) {
	defer func() { observe("reset_confirm", err) }()

	if err := checkNewSecret(secret, confirm); err != nil {
		return err
	}

	identity, err := u.identities.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return domain.ErrTokenInvalid
		}
		return fmt.Errorf("find identity: %w", err)
	}

	claims, status := u.resets.Validate(identity.ID, rawToken)
	switch status {
	case token.StatusExpired:
		return domain.ErrTokenExpired
	case token.StatusInvalid:
		return domain.ErrTokenInvalid
	}
	if claims.Fingerprint != token.Fingerprint(identity.SecretHash) {
		return domain.ErrTokenInvalid
	}

	if err := u.updateSecret(ctx, identity.ID, secret); err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return domain.ErrTokenInvalid
		}
		return err
	}
	u.logger.InfoContext(ctx, "password reset", "identity_id", identity.ID)
	return nil
}

// ChangePassword sets a new secret for the holder of sessionToken.
func (u *CredentialUsecase) ChangePassword(ctx context.Context, sessionToken, secret, confirm string) (err error) {
	defer func() { observe("change_password", err) }()

	claims, err := u.Authenticate(sessionToken)
	if err != nil {
		return err
	}
	if err := checkNewSecret(secret, confirm); err != nil {
		return err
	}

	if err := u.updateSecret(ctx, claims.IdentityID(), secret); err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}
	u.logger.InfoContext(ctx, "password changed", "identity_id", claims.IdentityID())
	return nil
}

// Authenticate returns the claims of a valid session token.
func (u *CredentialUsecase) Authenticate(sessionToken string) (*token.SessionClaims, error) {
	claims, status := u.sessions.Validate(sessionToken)
	switch status {
	case token.StatusValid:
		return claims, nil
	case token.StatusExpired:
		return nil, domain.ErrTokenExpired
	default:
		return nil, domain.ErrUnauthorized
	}
}

func (u *CredentialUsecase) sendCode(ctx context.Context, identity *domain.Identity) error {
	code, err := u.codes.Issue(ctx, identity.ID)
	if err != nil {
		return err
	}

	body := email.VerificationBody(identity.Name, code, u.frontendHost+verifyPagePath, u.codes.TTL())
	if err := u.mailer.Send(ctx, identity.Email, email.VerificationSubject, body); err != nil {
		u.logger.ErrorContext(ctx, "verification code not delivered",
			"identity_id", identity.ID,
			"error", err,
		)
		return deliveryError(err)
	}
	return nil
}

func (u *CredentialUsecase) updateSecret(ctx context.Context, identityID, secret string) error {
	hash, err := u.hasher.Hash(ctx, secret)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}
	if _, err := u.identities.UpdateSecretHash(ctx, identityID, hash); err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return err
		}
		return fmt.Errorf("update secret: %w", err)
	}
	return nil
}

func checkNewSecret(secret, confirm string) error {
	if secret != confirm {
		return domain.ErrSecretMismatch
	}
	if len(secret) < domain.MinSecretLength {
		return domain.ErrSecretTooShort
	}
	return nil
}

func deliveryError(err error) error {
	if errors.Is(err, domain.ErrDeliveryFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
}

var rejections = []error{
	domain.ErrValidation,
	domain.ErrDuplicateEmail,
	domain.ErrIdentityNotFound,
	domain.ErrUnverified,
	domain.ErrAlreadyVerified,
	domain.ErrInvalidCredentials,
	domain.ErrUnauthorized,
	domain.ErrTokenInvalid,
	domain.ErrTokenExpired,
	domain.ErrCodeMismatch,
	domain.ErrCodeExpired,
	domain.ErrSecretMismatch,
	domain.ErrSecretTooShort,
}

func observe(flow string, err error) {
	metrics.FlowsTotal.WithLabelValues(flow, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, domain.ErrDeliveryFailed) {
		return "delivery_failed"
	}
	for _, r := range rejections {
		if errors.Is(err, r) {
			return "rejected"
		}
	}
	return "error"
}
