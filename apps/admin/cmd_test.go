package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/daily"
	"github.com/trezcool/dailies/core/directory"
	inmemdb "github.com/trezcool/dailies/storage/database/inmem"
	"github.com/trezcool/dailies/tests"
)

var (
	dirRepo   directory.Repository
	dailyRepo daily.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	db := inmemdb.Open()
	dirRepo = inmemdb.NewDirectoryRepository(db)
	dailyRepo = inmemdb.NewDailyRepository(db)

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	out := new(bytes.Buffer)
	return &commandLine{
		db:       sqlDB,
		dirSvc:   directory.NewService(dirRepo),
		dailySvc: daily.NewService(dailyRepo, nil, nil, &testutil.Logger{}, daily.Options{}),
		out:      out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(context.Background(), args)
			switch {
			case tt.wantErr != nil:
				assert.True(t, errors.Is(err, tt.wantErr), "cli.run() error = %v, wantErr %v", err, tt.wantErr)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_root(t *testing.T) {
	cli, _ := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "admin"`},
		{name: "roster: no subcommand", args: []string{"roster"}, wantErr: errHelp},
		{name: "dailies: no subcommand", args: []string{"dailies"}, wantErr: errHelp},
		{name: "help", args: []string{"--help"}},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseFunc = func(ctx context.Context, db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "add_responses_cohort", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	})

	cli.db = nil
	runCLITests(t, cli, []cliTest{
		{name: "not postgres", args: []string{"migrate", "up"}, wantErr: errNoSQL},
	})
}

func Test_commandLine_roster(t *testing.T) {
	cli, out := setup(t)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "roster.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("email,group,cohort\nana@test.cd,A,2024\nbob@test.cd,B\n"), 0o600))
	badPath := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(badPath, []byte("ana@test.cd\nnot-an-email\n"), 0o600))

	runCLITests(t, cli, []cliTest{
		{name: "import: no file", args: []string{"roster", "import"}, wantErrStr: "accepts 1 arg(s), received 0"},
		{name: "import: missing file", args: []string{"roster", "import", filepath.Join(dir, "nope.csv")}, wantErrStr: "opening roster file: open " + filepath.Join(dir, "nope.csv") + ": no such file or directory"},
		{name: "import: invalid email", args: []string{"roster", "import", badPath}, wantErr: directory.ErrInvalidEmail},
		{name: "import", args: []string{"roster", "import", csvPath}},
		{name: "add: invalid email", args: []string{"roster", "add", "lol"}, wantErr: directory.ErrInvalidEmail},
		{name: "add", args: []string{"roster", "add", " cid@test.cd ", "--group", "A", "--cohort", "2025"}},
	})

	entries, err := dirRepo.ListEntries(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []directory.Entry{
		{Email: "ana@test.cd", Group: "A", Cohort: "2024"},
		{Email: "bob@test.cd", Group: "B"},
		{Email: "cid@test.cd", Group: "A", Cohort: "2025"},
	}, entries)
	assert.Contains(t, out.String(), "2 entries imported")
	assert.Contains(t, out.String(), "cid@test.cd added")

	t.Run("import from stdin", func(t *testing.T) {
		cli.in = strings.NewReader("dan@test.cd,C,2024\n")
		require.NoError(t, cli.run(context.Background(), []string{"admin", "roster", "import", "-"}))
		ok, err := dirRepo.Exists(context.Background(), "dan@test.cd")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("list filtered", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run(context.Background(), []string{"admin", "roster", "list", "--group", "A"}))
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "EMAIL"))
		assert.Contains(t, out.String(), "ana@test.cd")
		assert.Contains(t, out.String(), "cid@test.cd")
		assert.NotContains(t, out.String(), "bob@test.cd")
	})

	t.Run("store unavailable", func(t *testing.T) {
		cli.dirSvc = directory.NewService(testutil.BrokenDirectory{Err: errors.New("connection refused")})
		err := cli.run(context.Background(), []string{"admin", "roster", "list"})
		assert.True(t, core.IsStoreUnavailable(err))
	})
}

func Test_commandLine_dailiesExport(t *testing.T) {
	cli, out := setup(t)

	jan := func(day int) core.Date { return core.NewDate(2024, 1, day) }
	testutil.CreateRecord(t, dailyRepo, "ana@test.cd", jan(2), daily.ProgressCompleted)
	testutil.CreateRecord(t, dailyRepo, "bob@test.cd", jan(3), daily.ProgressBlocked)
	testutil.CreateRecord(t, dailyRepo, "ana@test.cd", jan(9), daily.ProgressInProgress)

	runCLITests(t, cli, []cliTest{
		{name: "bad date", args: []string{"dailies", "export", "--from", "lol"}, wantErrStr: `--from: invalid date "lol": expected YYYY-MM-DD`},
	})

	tests := []struct {
		name      string
		args      []string
		wantRows  int
		wantEmail []string
	}{
		{name: "all", args: nil, wantRows: 3, wantEmail: []string{"ana@test.cd", "bob@test.cd", "ana@test.cd"}},
		{name: "by email", args: []string{"--email", "ana@test.cd"}, wantRows: 2, wantEmail: []string{"ana@test.cd", "ana@test.cd"}},
		{name: "by range", args: []string{"--from", "2024-01-03", "--to", "2024-01-08"}, wantRows: 1, wantEmail: []string{"bob@test.cd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			args := append([]string{"admin", "dailies", "export"}, tt.args...)
			require.NoError(t, cli.run(context.Background(), args))

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			require.Len(t, lines, tt.wantRows+1)
			assert.True(t, strings.HasPrefix(lines[0], "date,email,task_description"))
			for i, email := range tt.wantEmail {
				assert.Contains(t, lines[i+1], ","+email+",")
			}
		})
	}
}
