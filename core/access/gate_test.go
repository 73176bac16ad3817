package access_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/access"
	"github.com/trezcool/dailies/core/directory"
	inmemdb "github.com/trezcool/dailies/storage/database/inmem"
	"github.com/trezcool/dailies/tests"
)

func setup(t *testing.T) *access.Gate {
	repo := inmemdb.NewDirectoryRepository(inmemdb.Open())
	testutil.CreateEntry(t, repo, "ana@test.cd", "A", "2024")
	return access.NewGate(directory.NewService(repo), testutil.NewConfig().Admin)
}

func TestGate_AdmitStudent(t *testing.T) {
	gate := setup(t)

	tests := []struct {
		name         string
		email        string
		wantOK       bool
		wantIdentity string
	}{
		{name: "listed", email: "ana@test.cd", wantOK: true, wantIdentity: "ana@test.cd"},
		{name: "listed, padded", email: " ana@test.cd ", wantOK: true, wantIdentity: "ana@test.cd"},
		{name: "case differs", email: "ANA@test.cd"},
		{name: "not listed", email: "eve@test.cd"},
		{name: "empty", email: ""},
		{name: "admin email is not a student", email: testutil.AdminEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := access.NewSession(access.RoleStudent, time.Hour)
			res, err := gate.AdmitStudent(context.Background(), &sess, tt.email)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOK, res.OK)
			assert.Equal(t, tt.wantOK, sess.IsAdmitted())
			assert.Equal(t, tt.wantIdentity, sess.Identity)
			if tt.wantOK {
				assert.NoError(t, res.Err())
				assert.Empty(t, res.Reason)
			} else {
				assert.Equal(t, access.ErrAdmissionDenied, res.Err())
				assert.Equal(t, "Email not found. Please try again.", res.Reason)
				assert.Equal(t, access.StateUnadmitted, sess.State)
			}
		})
	}
}

func TestGate_AdmitStudent_retry(t *testing.T) {
	gate := setup(t)
	sess := access.NewSession(access.RoleStudent, time.Hour)

	for i := 0; i < 5; i++ {
		res, err := gate.AdmitStudent(context.Background(), &sess, "eve@test.cd")
		require.NoError(t, err)
		require.False(t, res.OK)
	}
	res, err := gate.AdmitStudent(context.Background(), &sess, "ana@test.cd")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "ana@test.cd", sess.Identity)
}

func TestGate_AdmitStudent_storeUnavailable(t *testing.T) {
	storeErr := errors.New("connection refused")
	tests := []struct {
		name   string
		roster access.Roster
	}{
		{name: "directory service", roster: directory.NewService(testutil.BrokenDirectory{Err: storeErr})},
		{name: "bare repository", roster: testutil.BrokenDirectory{Err: storeErr}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := access.NewGate(tt.roster, testutil.NewConfig().Admin)
			sess := access.NewSession(access.RoleStudent, time.Hour)

			res, err := gate.AdmitStudent(context.Background(), &sess, "ana@test.cd")
			assert.True(t, core.IsStoreUnavailable(err), "AdmitStudent() error = %v", err)
			assert.False(t, res.OK)
			assert.False(t, sess.IsAdmitted())
		})
	}
}

func TestGate_AdmitAdmin(t *testing.T) {
	gate := setup(t)

	tests := []struct {
		name   string
		email  string
		token  string
		wantOK bool
	}{
		{name: "listed email, right token", email: testutil.AdminEmail, token: testutil.AdminToken, wantOK: true},
		{name: "listed email, padded", email: " " + testutil.AdminEmail + " ", token: testutil.AdminToken, wantOK: true},
		{name: "listed email, wrong token", email: testutil.AdminEmail, token: "lol"},
		{name: "listed email, empty token", email: testutil.AdminEmail, token: ""},
		{name: "unlisted email, right token", email: "ana@test.cd", token: testutil.AdminToken},
		{name: "unlisted email, wrong token", email: "eve@test.cd", token: "lol"},
		{name: "empty email", email: "", token: testutil.AdminToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := access.NewSession(access.RoleAdmin, time.Hour)
			res, err := gate.AdmitAdmin(&sess, tt.email, tt.token)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOK, res.OK)
			assert.Equal(t, tt.wantOK, sess.IsAdmitted())
			if !tt.wantOK {
				assert.Equal(t, "Invalid email or token. Please try again.", res.Reason)
				assert.Empty(t, sess.Identity)
			}
		})
	}
}

func TestGate_AdmitAdmin_noConfiguredToken(t *testing.T) {
	gate := access.NewGate(testutil.BrokenDirectory{}, core.AdminConfig{Emails: []string{testutil.AdminEmail}})
	sess := access.NewSession(access.RoleAdmin, time.Hour)

	res, err := gate.AdmitAdmin(&sess, testutil.AdminEmail, "")
	require.NoError(t, err)
	assert.False(t, res.OK)
}

func TestGate_wrongRole(t *testing.T) {
	gate := setup(t)

	adminSess := access.NewSession(access.RoleAdmin, time.Hour)
	_, err := gate.AdmitStudent(context.Background(), &adminSess, "ana@test.cd")
	assert.Equal(t, access.ErrWrongRole, err)
	assert.False(t, adminSess.IsAdmitted())

	studentSess := access.NewSession(access.RoleStudent, time.Hour)
	_, err = gate.AdmitAdmin(&studentSess, testutil.AdminEmail, testutil.AdminToken)
	assert.Equal(t, access.ErrWrongRole, err)
	assert.False(t, studentSess.IsAdmitted())
}
