// Package updategate decides whether a proposed user mutation may reach the
// record store. It is pure: no I/O beyond the credential check.
package updategate

import (
	"github.com/docshare/identity-api/internal/core/domain"
	"github.com/docshare/identity-api/internal/core/ports"
)

// PasswordUpdatedNote is attached to a decision that changes the password.
const PasswordUpdatedNote = "password was also updated"

// Payload is the raw update body. Password must be the caller's current
// password. NewPassword and ConfirmationPassword are out-of-band: they are
// never forwarded as attributes.
type Payload struct {
	Email                string
	Username             string
	Password             string
	FullName             string
	Bio                  string
	NewPassword          string
	ConfirmationPassword string
}

// Decision is an accepted update.
type Decision struct {
	Changes         domain.UserChanges
	PasswordChanged bool
	Note            string
}

// NoOp reports whether the decision would not modify the record. The
// re-verified current password alone is not a change.
func (d *Decision) NoOp() bool {
	c := d.Changes
	if !d.PasswordChanged {
		c.Password = ""
	}
	return c.IsEmpty()
}

// Pipeline runs the ordered checks.
type Pipeline struct {
	creds ports.Credentials
}

func New(creds ports.Credentials) *Pipeline {
	return &Pipeline{creds: creds}
}

// Authorize validates payload against current as a unit. The first failing
// check wins:
//
//  1. current is nil                       -> UnknownIdentity
//  2. Password does not verify             -> ReauthenticationFailed
//  3. NewPassword != ConfirmationPassword  -> PasswordConfirmationMismatch
//     (checked when either one is set)
//
// On success only truthy allow-listed attributes are kept, with the
// password slot replaced by NewPassword when a change was confirmed.
func (p *Pipeline) Authorize(payload Payload, current *domain.User) (*Decision, error) {
	if current == nil {
		return nil, domain.Fail(domain.CauseUnknownIdentity)
	}

	if !p.creds.Verify(payload.Password, current.PasswordHash) {
		return nil, domain.Fail(domain.CauseReauthenticationFailed)
	}

	changing := payload.NewPassword != "" || payload.ConfirmationPassword != ""
	if changing && payload.NewPassword != payload.ConfirmationPassword {
		return nil, domain.Fail(domain.CausePasswordConfirmationMismatch)
	}

	d := &Decision{Changes: FilterAllowed(payload)}
	if changing {
		d.Changes.Password = payload.NewPassword
		d.PasswordChanged = true
		d.Note = PasswordUpdatedNote
	}
	return d, nil
}

// FilterAllowed keeps the allow-listed attributes {email, username,
// password, fullName, bio} that are non-empty. Everything else in the
// payload is dropped. An all-empty payload yields an empty change set.
func FilterAllowed(p Payload) domain.UserChanges {
	return domain.UserChanges{
		Email:    p.Email,
		Username: p.Username,
		Password: p.Password,
		FullName: p.FullName,
		Bio:      p.Bio,
	}
}
