package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/docshare/identity-api/internal/api/metrics"
	"github.com/docshare/identity-api/internal/core/credential"
	"github.com/docshare/identity-api/internal/core/domain"
	"github.com/docshare/identity-api/internal/core/pagination"
	"github.com/docshare/identity-api/internal/core/ports"
	"github.com/docshare/identity-api/internal/core/updategate"
)

const (
	MsgLoginSuccess  = "login successful"
	MsgSignupSuccess = "signup successful"
	MsgUserUpdated   = "user successfully updated"
)

// timingDummySecret is hashed once so unknown-email logins pay the same
// bcrypt cost as wrong-password logins.
const timingDummySecret = "docshare-timing-equalizer"

// UserService implements the identity use cases on top of the record store.
type UserService struct {
	repo   ports.UserRepository
	creds  ports.Credentials
	tokens ports.TokenIssuer
	gate   *updategate.Pipeline
	audit  ports.AuditSink
	rules  *fieldRules
	log    zerolog.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

func NewUserService(
	repo ports.UserRepository,
	creds ports.Credentials,
	tokens ports.TokenIssuer,
	audit ports.AuditSink,
	log zerolog.Logger,
) *UserService {
	if audit == nil {
		audit = discardAudit{}
	}
	return &UserService{
		repo:   repo,
		creds:  creds,
		tokens: tokens,
		gate:   updategate.New(creds),
		audit:  audit,
		rules:  newFieldRules(),
		log:    log,
	}
}

// Login verifies email and password and issues a token. An unknown email
// and a wrong password produce the same WrongCredential failure.
func (s *UserService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
			return nil, s.storeFailure(err, "login lookup failed")
		}
		s.creds.Verify(password, s.timingDigest())
		metrics.LoginAttemptsTotal.WithLabelValues("wrong_credential").Inc()
		return nil, domain.Fail(domain.CauseWrongCredential)
	}

	if !s.creds.Verify(password, user.PasswordHash) {
		metrics.LoginAttemptsTotal.WithLabelValues("wrong_credential").Inc()
		return nil, domain.Fail(domain.CauseWrongCredential)
	}

	token, err := s.issue(ctx, user)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.publish(user.ID, domain.AuditLogin, "")
	s.log.Info().Int64("user_id", user.ID).Msg("user logged in")

	return &ports.AuthResult{Token: token, User: user.Redacted(), Message: MsgLoginSuccess}, nil
}

// Signup creates a user and issues a token for it. When the store rejects
// the insert, the record is re-fetched by email once: if it exists and the
// supplied password verifies, it was created concurrently by the same
// caller and a token is issued for it.
func (s *UserService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	if in.Password != in.ConfirmationPassword {
		metrics.SignupsTotal.WithLabelValues(domain.CausePasswordConfirmationMismatch.String()).Inc()
		return nil, domain.Fail(domain.CausePasswordConfirmationMismatch)
	}
	if err := s.rules.signup(signupFields{Email: in.Email, Username: in.Username, Password: in.Password}); err != nil {
		metrics.SignupsTotal.WithLabelValues(domain.CauseOf(err).String()).Inc()
		return nil, err
	}

	digest, err := s.hash(in.Password)
	if err != nil {
		metrics.SignupsTotal.WithLabelValues(domain.CauseOf(err).String()).Inc()
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: digest,
		Role:         domain.RoleRegular,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return s.recoverSignup(ctx, in, err)
	}

	token, err := s.issue(ctx, created)
	if err != nil {
		metrics.SignupsTotal.WithLabelValues(domain.CauseInternal.String()).Inc()
		return nil, err
	}

	metrics.SignupsTotal.WithLabelValues("created").Inc()
	s.publish(created.ID, domain.AuditSignup, "")
	s.log.Info().Int64("user_id", created.ID).Str("username", created.Username).Msg("user signed up")

	return &ports.AuthResult{Token: token, User: created.Redacted(), Message: MsgSignupSuccess}, nil
}

func (s *UserService) recoverSignup(ctx context.Context, in ports.SignupInput, createErr error) (*ports.AuthResult, error) {
	existing, err := s.repo.FindByEmail(ctx, in.Email)
	if err == nil && s.creds.Verify(in.Password, existing.PasswordHash) {
		token, err := s.issue(ctx, existing)
		if err != nil {
			metrics.SignupsTotal.WithLabelValues(domain.CauseInternal.String()).Inc()
			return nil, err
		}
		metrics.SignupsTotal.WithLabelValues("recovered").Inc()
		s.log.Warn().Int64("user_id", existing.ID).Msg("signup recovered after concurrent create")
		return &ports.AuthResult{Token: token, User: existing.Redacted(), Message: MsgSignupSuccess}, nil
	}

	switch domain.CauseOf(createErr) {
	case domain.CauseDuplicateUnique, domain.CauseValidationFailure:
		metrics.SignupsTotal.WithLabelValues(domain.CauseOf(createErr).String()).Inc()
		return nil, createErr
	}
	metrics.SignupsTotal.WithLabelValues(domain.CauseTransientStoreFailure.String()).Inc()
	return nil, s.storeFailure(createErr, "signup create failed")
}

// List returns users, paginated when page is non-nil.
func (s *UserService) List(ctx context.Context, page *domain.Page) (*ports.ListResult, error) {
	window := domain.Page{}
	if page != nil {
		window = *page
	}

	users, count, err := s.repo.List(ctx, window)
	if err != nil {
		return nil, s.storeFailure(err, "list users failed")
	}

	res := &ports.ListResult{Users: redactAll(users), Count: count}
	if page != nil {
		meta := pagination.Paginate(int64(page.Limit), int64(page.Offset), count)
		res.Meta = &meta
	}
	return res, nil
}

// Get returns a single redacted user.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.Fail(domain.CauseUnknownIdentity)
		}
		return nil, s.storeFailure(err, "get user failed")
	}
	return user.Redacted(), nil
}

// Update runs the payload through the update gate and the field rules, then
// hands the accepted attributes to the store. Nothing is written unless
// every check passes.
func (s *UserService) Update(ctx context.Context, id int64, in ports.UpdateInput) (*ports.UpdateResult, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, s.storeFailure(err, "update lookup failed")
	}

	decision, err := s.gate.Authorize(updategate.Payload{
		Email:                in.Email,
		Username:             in.Username,
		Password:             in.Password,
		FullName:             in.FullName,
		Bio:                  in.Bio,
		NewPassword:          in.NewPassword,
		ConfirmationPassword: in.ConfirmationPassword,
	}, current)
	if err != nil {
		metrics.UserUpdatesTotal.WithLabelValues(domain.CauseOf(err).String()).Inc()
		if current != nil {
			s.log.Warn().Int64("user_id", id).Str("cause", domain.CauseOf(err).String()).Msg("user update rejected")
		}
		return nil, err
	}

	if decision.NoOp() {
		metrics.UserUpdatesTotal.WithLabelValues("noop").Inc()
		return &ports.UpdateResult{User: current.Redacted(), Message: MsgUserUpdated}, nil
	}

	if err := s.rules.changes(decision.Changes); err != nil {
		metrics.UserUpdatesTotal.WithLabelValues(domain.CauseOf(err).String()).Inc()
		return nil, err
	}

	update := domain.UserUpdate{
		Email:     decision.Changes.Email,
		Username:  decision.Changes.Username,
		FullName:  decision.Changes.FullName,
		Bio:       decision.Changes.Bio,
		UpdatedAt: time.Now().UTC(),
	}
	if decision.Changes.Password != "" {
		digest, err := s.hash(decision.Changes.Password)
		if err != nil {
			metrics.UserUpdatesTotal.WithLabelValues(domain.CauseOf(err).String()).Inc()
			return nil, err
		}
		update.PasswordHash = digest
	}

	updated, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.UserUpdatesTotal.WithLabelValues(domain.CauseUnknownIdentity.String()).Inc()
			return nil, domain.Fail(domain.CauseUnknownIdentity)
		}
		if c := domain.CauseOf(err); c == domain.CauseDuplicateUnique || c == domain.CauseValidationFailure {
			metrics.UserUpdatesTotal.WithLabelValues(c.String()).Inc()
			return nil, err
		}
		metrics.UserUpdatesTotal.WithLabelValues(domain.CauseTransientStoreFailure.String()).Inc()
		return nil, s.storeFailure(err, "update user failed")
	}

	msg := MsgUserUpdated
	if decision.Note != "" {
		msg += ", " + decision.Note
	}

	metrics.UserUpdatesTotal.WithLabelValues("accepted").Inc()
	s.publish(id, domain.AuditUpdate, decision.Note)
	s.log.Info().Int64("user_id", id).Bool("password_changed", decision.PasswordChanged).Msg("user updated")

	return &ports.UpdateResult{User: updated.Redacted(), Message: msg}, nil
}

// Delete removes a user. Deleting an id that does not exist still succeeds.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.storeFailure(err, "delete user failed")
	}
	s.publish(id, domain.AuditDelete, "")
	s.log.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

// Search finds users whose email contains query. A blank query or no match
// is a NoMatch failure.
func (s *UserService) Search(ctx context.Context, query string) ([]*domain.User, int64, error) {
	if strings.TrimSpace(query) == "" {
		return nil, 0, domain.Fail(domain.CauseNoMatch)
	}
	users, count, err := s.repo.SearchByEmail(ctx, query)
	if err != nil {
		return nil, 0, s.storeFailure(err, "search users failed")
	}
	if count == 0 {
		return nil, 0, domain.Fail(domain.CauseNoMatch)
	}
	return redactAll(users), count, nil
}

func (s *UserService) issue(ctx context.Context, user *domain.User) (string, error) {
	token, err := s.tokens.Issue(ctx, user.Snapshot())
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("token issuance failed")
		if domain.CauseOf(err) == domain.CauseUnknown {
			err = domain.Wrap(domain.CauseInternal, err)
		}
		return "", err
	}
	metrics.TokensIssuedTotal.Inc()
	return token, nil
}

func (s *UserService) hash(secret string) (string, error) {
	start := time.Now()
	digest, err := s.creds.Hash(secret)
	metrics.CredentialHashDuration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		return digest, nil
	case errors.Is(err, credential.ErrSecretTooLong):
		return "", domain.Invalid(domain.CauseValidationFailure,
			domain.FieldError{Field: "password", Message: "password must be at most 72 bytes"})
	case errors.Is(err, credential.ErrEmptySecret):
		return "", domain.Invalid(domain.CauseValidationFailure,
			domain.FieldError{Field: "password", Message: "password is required"})
	default:
		return "", domain.Wrap(domain.CauseInternal, err)
	}
}

func (s *UserService) timingDigest() string {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.creds.Hash(timingDummySecret)
	})
	return s.dummyDigest
}

// storeFailure classifies an unexpected store error. Errors that already
// carry a cause pass through; everything else is transient.
func (s *UserService) storeFailure(err error, msg string) error {
	if domain.CauseOf(err) != domain.CauseUnknown {
		return err
	}
	s.log.Error().Err(err).Msg(msg)
	return domain.Wrap(domain.CauseTransientStoreFailure, err)
}

func (s *UserService) publish(userID int64, action domain.AuditAction, detail string) {
	s.audit.Publish(domain.AuditEvent{
		UserID:     userID,
		Action:     action,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	})
}

func redactAll(users []*domain.User) []*domain.User {
	out := make([]*domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Redacted())
	}
	return out
}

type discardAudit struct{}

func (discardAudit) Publish(domain.AuditEvent) {}
