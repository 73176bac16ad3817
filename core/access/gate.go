package access

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/trezcool/dailies/core"
)

var (
	ErrAdmissionDenied = errors.New("admission denied")

	reasonEmailNotFound = "Email not found. Please try again."
	reasonInvalidAdmin  = "Invalid email or token. Please try again."
)

type (
	// Roster is the part of the Directory Store the Gate needs.
	Roster interface {
		Exists(ctx context.Context, email string) (bool, error)
	}

	AdmissionResult struct {
		OK     bool
		Reason string // user-facing, set when !OK
	}

	// Gate decides admission. Denials leave the session untouched and may be retried without limit.
	Gate struct {
		roster      Roster
		adminEmails map[string]struct{}
		adminToken  string
	}
)

func NewGate(roster Roster, admin core.AdminConfig) *Gate {
	emails := make(map[string]struct{}, len(admin.Emails))
	for _, email := range admin.Emails {
		if email = core.CleanString(email); email != "" {
			emails[email] = struct{}{}
		}
	}
	return &Gate{
		roster:      roster,
		adminEmails: emails,
		adminToken:  admin.Token,
	}
}

func (res AdmissionResult) Err() error {
	if res.OK {
		return nil
	}
	return ErrAdmissionDenied
}

// AdmitStudent admits `sess` when `email` is in the roster.
// A roster failure is returned as an error and never admits.
func (g *Gate) AdmitStudent(ctx context.Context, sess *Session, email string) (AdmissionResult, error) {
	if sess.Role != RoleStudent {
		return AdmissionResult{}, ErrWrongRole
	}
	email = core.CleanString(email)
	if email == "" {
		return AdmissionResult{Reason: reasonEmailNotFound}, nil
	}

	ok, err := g.roster.Exists(ctx, email)
	if err != nil {
		if !core.IsStoreUnavailable(err) {
			err = core.NewStoreError("looking up directory entry", err)
		}
		return AdmissionResult{}, err
	}
	if !ok {
		return AdmissionResult{Reason: reasonEmailNotFound}, nil
	}
	sess.admit(email)
	return AdmissionResult{OK: true}, nil
}

// AdmitAdmin admits `sess` when `email` is allow-listed AND `token` is the shared admin token.
func (g *Gate) AdmitAdmin(sess *Session, email, token string) (AdmissionResult, error) {
	if sess.Role != RoleAdmin {
		return AdmissionResult{}, ErrWrongRole
	}
	email = core.CleanString(email)
	if !g.isAdmin(email, token) {
		return AdmissionResult{Reason: reasonInvalidAdmin}, nil
	}
	sess.admit(email)
	return AdmissionResult{OK: true}, nil
}

func (g *Gate) isAdmin(email, token string) bool {
	_, listed := g.adminEmails[email]
	// compare the token even when the email is not listed
	tokenOK := g.adminToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(g.adminToken)) == 1
	return listed && tokenOK
}
