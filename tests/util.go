package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/access"
	"github.com/trezcool/dailies/core/daily"
	"github.com/trezcool/dailies/core/directory"
)

const (
	AdminEmail = "admin@test.cd"
	AdminToken = "s3cr3t-t0k3n"
)

// NewConfig returns a TEST config using the in-memory stores.
func NewConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Dailies",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			SessionTTL:    time.Hour,
			SessionCookie: "dailies_session",
		},
		Database: core.DatabaseConfig{Engine: core.EngineInMem},
		Admin:    core.AdminConfig{Emails: []string{AdminEmail}, Token: AdminToken},
		Session:  core.SessionConfig{Store: core.SessionStoreMemory},
		Mail:     core.MailConfig{DefaultFromEmail: "noreply@test.cd"},
	}
}

func CreateEntry(t *testing.T, repo directory.Repository, email, group, cohort string) directory.Entry {
	t.Helper()
	e := directory.Entry{Email: email, Group: group, Cohort: cohort}
	if _, err := repo.UpsertEntries(context.Background(), e); err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	return e
}

func CreateRecord(t *testing.T, repo daily.Repository, email string, date core.Date, prog daily.Progress) daily.Record {
	t.Helper()
	rec := daily.Record{
		ID:              uuid.New().String(),
		Email:           email,
		Date:            date,
		TaskDescription: fmt.Sprintf("task of %s on %s", email, date),
		Progress:        prog,
		NextSteps:       "keep going",
		CreatedAt:       time.Now().UTC(),
	}
	if prog == daily.ProgressBlocked {
		rec.ObstacleDescription = "stuck"
	}
	rec, err := repo.CreateRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}

// StudentSession returns a session admitted through `gate`; `email` must be in the roster.
func StudentSession(t *testing.T, gate *access.Gate, email string) *access.Session {
	t.Helper()
	sess := access.NewSession(access.RoleStudent, time.Hour)
	res, err := gate.AdmitStudent(context.Background(), &sess, email)
	if err != nil || !res.OK {
		t.Fatalf("StudentSession() failed: %v %q", err, res.Reason)
	}
	return &sess
}

func AdminSession(t *testing.T, gate *access.Gate) *access.Session {
	t.Helper()
	sess := access.NewSession(access.RoleAdmin, time.Hour)
	res, err := gate.AdmitAdmin(&sess, AdminEmail, AdminToken)
	if err != nil || !res.OK {
		t.Fatalf("AdminSession() failed: %v %q", err, res.Reason)
	}
	return &sess
}

// BrokenDirectory is a directory.Repository whose every call fails with Err.
type BrokenDirectory struct{ Err error }

func (r BrokenDirectory) ListEntries(context.Context) ([]directory.Entry, error) { return nil, r.Err }
func (r BrokenDirectory) Exists(context.Context, string) (bool, error)          { return false, r.Err }
func (r BrokenDirectory) UpsertEntries(context.Context, ...directory.Entry) (int, error) {
	return 0, r.Err
}

// BrokenDailies is a daily.Repository whose every call fails with Err.
type BrokenDailies struct{ Err error }

func (r BrokenDailies) CreateRecord(context.Context, daily.Record) (daily.Record, error) {
	return daily.Record{}, r.Err
}
func (r BrokenDailies) QueryRecords(context.Context, daily.QueryFilter) ([]daily.Record, error) {
	return nil, r.Err
}

// Logger is a core.Logger keeping the logged messages.
type Logger struct {
	mu   sync.Mutex
	Msgs []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Msgs = append(l.Msgs, level+": "+msg)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

func (l *Logger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Msgs...)
}

// AdvisoryFunc adapts a func to core.AdvisoryService.
type AdvisoryFunc func(ctx context.Context, question, corpus string, participants []string) (string, error)

func (f AdvisoryFunc) Ask(ctx context.Context, question, corpus string, participants []string) (string, error) {
	return f(ctx, question, corpus, participants)
}
