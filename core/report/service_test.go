package report_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/access"
	"github.com/trezcool/dailies/core/daily"
	"github.com/trezcool/dailies/core/directory"
	"github.com/trezcool/dailies/core/report"
	inmemdb "github.com/trezcool/dailies/storage/database/inmem"
	"github.com/trezcool/dailies/tests"
)

func jan(day int) core.Date { return core.NewDate(2024, 1, day) }

type testDeps struct {
	dirRepo   directory.Repository
	dailyRepo daily.Repository
	gate      *access.Gate
	logger    *testutil.Logger
}

func setup(t *testing.T) testDeps {
	db := inmemdb.Open()
	deps := testDeps{
		dirRepo:   inmemdb.NewDirectoryRepository(db),
		dailyRepo: inmemdb.NewDailyRepository(db),
		logger:    new(testutil.Logger),
	}
	deps.gate = access.NewGate(directory.NewService(deps.dirRepo), testutil.NewConfig().Admin)

	testutil.CreateEntry(t, deps.dirRepo, "ana@test.cd", "A", "2024")
	testutil.CreateEntry(t, deps.dirRepo, "bob@test.cd", "B", "2024")
	testutil.CreateEntry(t, deps.dirRepo, "cid@test.cd", "A", "2025")

	testutil.CreateRecord(t, deps.dailyRepo, "ana@test.cd", jan(1), daily.ProgressCompleted)
	testutil.CreateRecord(t, deps.dailyRepo, "ana@test.cd", jan(8), daily.ProgressInProgress)
	testutil.CreateRecord(t, deps.dailyRepo, "bob@test.cd", jan(2), daily.ProgressBlocked)
	testutil.CreateRecord(t, deps.dailyRepo, "cid@test.cd", jan(9), daily.ProgressCompleted)
	testutil.CreateRecord(t, deps.dailyRepo, "eve@test.cd", jan(3), daily.ProgressCompleted) // no longer listed
	return deps
}

func (deps testDeps) service(advisory core.AdvisoryService) *report.Service {
	dirSvc := directory.NewService(deps.dirRepo)
	dailySvc := daily.NewService(deps.dailyRepo, nil, nil, deps.logger, daily.Options{})
	return report.NewService(dirSvc, dailySvc, advisory, deps.logger)
}

func TestService_Build(t *testing.T) {
	deps := setup(t)
	svc := deps.service(nil)
	sess := testutil.AdminSession(t, deps.gate)

	tests := []struct {
		name        string
		filters     report.Filters
		wantRecords int
		wantEntries int
		wantEmails  []string
	}{
		{name: "no filters", wantRecords: 5, wantEntries: 3, wantEmails: []string{"ana@test.cd", "bob@test.cd", "cid@test.cd", "eve@test.cd"}},
		{name: "group", filters: report.Filters{Group: "A"}, wantRecords: 3, wantEntries: 2, wantEmails: []string{"ana@test.cd", "cid@test.cd"}},
		{name: "group and cohort", filters: report.Filters{Group: "A", Cohort: "2024"}, wantRecords: 2, wantEntries: 1, wantEmails: []string{"ana@test.cd"}},
		{name: "range", filters: report.Filters{From: jan(2), To: jan(8)}, wantRecords: 3, wantEntries: 3, wantEmails: []string{"ana@test.cd", "bob@test.cd", "eve@test.cd"}},
		{name: "group and range", filters: report.Filters{Group: "A", From: jan(5)}, wantRecords: 2, wantEntries: 2, wantEmails: []string{"ana@test.cd", "cid@test.cd"}},
		{name: "unknown group", filters: report.Filters{Group: "Z"}, wantRecords: 0, wantEntries: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := svc.Build(context.Background(), sess, tt.filters)
			require.NoError(t, err)

			assert.Len(t, view.Records, tt.wantRecords)
			assert.Len(t, view.Entries, tt.wantEntries)
			assert.Equal(t, []string{"A", "B"}, view.Groups, "filter options come from the whole roster")
			assert.Equal(t, []string{"2024", "2025"}, view.Cohorts)

			if tt.wantRecords == 0 {
				assert.True(t, view.NoData())
				assert.True(t, view.Daily.NoData)
				assert.True(t, view.Weekly.NoData)
				assert.True(t, view.PerEmail.NoData)
				return
			}
			emails := make([]string, 0)
			for _, row := range view.PerEmail.Rows {
				emails = append(emails, row.Email)
			}
			assert.ElementsMatch(t, tt.wantEmails, emails)
		})
	}
}

// narrowing a filter never grows an aggregate
func TestService_Build_monotonic(t *testing.T) {
	deps := setup(t)
	svc := deps.service(nil)
	sess := testutil.AdminSession(t, deps.gate)

	total := func(v report.View) (daily, weekly, perEmail int) {
		for _, p := range v.Daily.Points {
			daily += p.Count
		}
		for _, w := range v.Weekly.Weeks {
			weekly += w.Total
		}
		for _, r := range v.PerEmail.Rows {
			perEmail += r.Count
		}
		return
	}

	chain := []report.Filters{
		{},
		{From: jan(1), To: jan(9)},
		{Group: "A", From: jan(1), To: jan(9)},
		{Group: "A", Cohort: "2024", From: jan(1), To: jan(9)},
		{Group: "A", Cohort: "2024", From: jan(2), To: jan(9)},
		{Group: "A", Cohort: "2024", From: jan(2), To: jan(7)},
	}
	prevD, prevW, prevP := -1, -1, -1
	for i, f := range chain {
		view, err := svc.Build(context.Background(), sess, f)
		require.NoError(t, err)
		d, w, p := total(view)
		if i > 0 {
			assert.LessOrEqual(t, d, prevD, "daily, step %d", i)
			assert.LessOrEqual(t, w, prevW, "weekly, step %d", i)
			assert.LessOrEqual(t, p, prevP, "per email, step %d", i)
		}
		assert.Equal(t, len(view.Records), d)
		prevD, prevW, prevP = d, w, p
	}
}

func TestService_Build_access(t *testing.T) {
	deps := setup(t)
	svc := deps.service(nil)

	cold := access.NewSession(access.RoleAdmin, 0)
	_, err := svc.Build(context.Background(), &cold, report.Filters{})
	assert.Equal(t, access.ErrNotAdmitted, err)

	student := testutil.StudentSession(t, deps.gate, "ana@test.cd")
	_, err = svc.Build(context.Background(), student, report.Filters{})
	assert.Equal(t, access.ErrWrongRole, err)
}

func TestService_Build_storeUnavailable(t *testing.T) {
	deps := setup(t)
	sess := testutil.AdminSession(t, deps.gate)
	storeErr := errors.New("connection refused")

	tests := []struct {
		name     string
		dirRepo  directory.Repository
		dailyRep daily.Repository
	}{
		{name: "directory", dirRepo: testutil.BrokenDirectory{Err: storeErr}, dailyRep: deps.dailyRepo},
		{name: "dailies", dirRepo: deps.dirRepo, dailyRep: testutil.BrokenDailies{Err: storeErr}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := report.NewService(
				directory.NewService(tt.dirRepo),
				daily.NewService(tt.dailyRep, nil, nil, deps.logger, daily.Options{}),
				nil, deps.logger,
			)
			_, err := svc.Build(context.Background(), sess, report.Filters{})
			assert.True(t, core.IsStoreUnavailable(err), "Build() error = %v", err)
		})
	}
}

func TestService_Ask(t *testing.T) {
	deps := setup(t)
	sess := testutil.AdminSession(t, deps.gate)

	var gotCorpus string
	var gotParticipants []string
	answering := testutil.AdvisoryFunc(func(ctx context.Context, question, corpus string, participants []string) (string, error) {
		gotCorpus, gotParticipants = corpus, participants
		return "  Bob is blocked.\n", nil
	})
	failing := testutil.AdvisoryFunc(func(context.Context, string, string, []string) (string, error) {
		return "", core.NewAdvisoryError(429, errors.New("rate limited"))
	})
	unreachable := testutil.AdvisoryFunc(func(context.Context, string, string, []string) (string, error) {
		return "", core.NewAdvisoryError(0, errors.New("dial tcp: connection refused"))
	})
	timingOut := testutil.AdvisoryFunc(func(context.Context, string, string, []string) (string, error) {
		return "", errors.Wrap(context.DeadlineExceeded, "posting question")
	})
	empty := testutil.AdvisoryFunc(func(context.Context, string, string, []string) (string, error) {
		return " ", nil
	})

	tests := []struct {
		name        string
		advisory    core.AdvisoryService
		filters     report.Filters
		question    string
		wantText    string
		wantMessage string
	}{
		{name: "answer", advisory: answering, question: " who is blocked? ", wantText: "Bob is blocked."},
		{name: "empty question", advisory: answering, question: "  ", wantMessage: "Please type a question."},
		{name: "disabled", advisory: nil, question: "who?", wantMessage: "The advisory service is not configured."},
		{name: "no data", advisory: answering, filters: report.Filters{Group: "Z"}, question: "who?", wantMessage: "There are no dailies matching the current filters to ask about."},
		{name: "status error", advisory: failing, question: "who?", wantMessage: "The advisory service could not answer (status 429). The report is still up to date."},
		{name: "unreachable", advisory: unreachable, question: "who?", wantMessage: "The advisory service could not answer (service unreachable). The report is still up to date."},
		{name: "timeout", advisory: timingOut, question: "who?", wantMessage: "The advisory service could not answer (timed out). The report is still up to date."},
		{name: "empty answer", advisory: empty, question: "who?", wantMessage: "The advisory service could not answer (empty answer). The report is still up to date."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := deps.service(tt.advisory)
			view, err := svc.Build(context.Background(), sess, tt.filters)
			require.NoError(t, err)
			before, err := svc.Build(context.Background(), sess, tt.filters)
			require.NoError(t, err)

			ans := svc.Ask(context.Background(), sess, view, tt.question)
			assert.Equal(t, tt.wantText, ans.Text)
			assert.Equal(t, tt.wantMessage, ans.Message)
			assert.Equal(t, tt.wantText != "", ans.OK())
			assert.Equal(t, before, view, "asking never alters the view")
		})
	}

	assert.Equal(t, []string{"ana@test.cd", "bob@test.cd", "cid@test.cd", "eve@test.cd"}, gotParticipants)
	assert.Equal(t, 5, strings.Count(gotCorpus, "Task: "))
	assert.Contains(t, gotCorpus, "[2024-01-02] bob@test.cd")
	assert.Contains(t, gotCorpus, "Obstacles: stuck")
}

func TestService_Ask_notAdmitted(t *testing.T) {
	deps := setup(t)
	called := false
	svc := deps.service(testutil.AdvisoryFunc(func(context.Context, string, string, []string) (string, error) {
		called = true
		return "ok", nil
	}))

	cold := access.NewSession(access.RoleAdmin, 0)
	ans := svc.Ask(context.Background(), &cold, report.View{Records: []daily.Record{{Email: "ana@test.cd"}}}, "who?")
	assert.False(t, ans.OK())
	assert.NotEmpty(t, ans.Message)
	assert.False(t, called)
}

func TestCorpus(t *testing.T) {
	recs := []daily.Record{
		{Email: "ana@test.cd", Date: jan(1), TaskDescription: "parser", Progress: daily.ProgressBlocked, ObstacleDescription: "flaky CI", NextSteps: "fix CI"},
		{Email: "bob@test.cd", Date: jan(2), TaskDescription: "docs", Progress: daily.ProgressCompleted, NextSteps: "review", AdditionalComments: "none"},
	}
	want := "[2024-01-01] ana@test.cd\n" +
		"Task: parser\n" +
		"Progress: Obstacles Found\n" +
		"Obstacles: flaky CI\n" +
		"Next steps: fix CI\n" +
		"\n" +
		"[2024-01-02] bob@test.cd\n" +
		"Task: docs\n" +
		"Progress: Completed\n" +
		"Next steps: review\n" +
		"Comments: none\n"
	assert.Equal(t, want, report.Corpus(recs))
}
