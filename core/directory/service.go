package directory

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/dailies/core"
)

var (
	// errors
	ErrInvalidEmail = errors.New("invalid email")
)

type (
	Repository interface {
		ListEntries(ctx context.Context) ([]Entry, error)
		Exists(ctx context.Context, email string) (bool, error)
		// UpsertEntries creates or replaces entries by email. Only used to bulk-load the roster.
		UpsertEntries(ctx context.Context, entries ...Entry) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the roster entries matching `filter`.
func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	entries, err := svc.repo.ListEntries(ctx)
	if err != nil {
		return nil, core.NewStoreError("listing directory entries", err)
	}
	filter.Clean()
	return filter.Apply(entries), nil
}

// Exists reports whether `email` is in the roster. The match is exact once surrounding whitespace is trimmed.
func (svc *Service) Exists(ctx context.Context, email string) (bool, error) {
	email = core.CleanString(email)
	if email == "" {
		return false, nil
	}
	ok, err := svc.repo.Exists(ctx, email)
	if err != nil {
		return false, core.NewStoreError("looking up directory entry", err)
	}
	return ok, nil
}

func (svc *Service) Add(ctx context.Context, entries ...Entry) (int, error) {
	for i := range entries {
		entries[i].Clean()
		if !strings.Contains(entries[i].Email, "@") {
			return 0, errors.Wrapf(ErrInvalidEmail, "%q", entries[i].Email)
		}
	}
	n, err := svc.repo.UpsertEntries(ctx, entries...)
	if err != nil {
		return 0, core.NewStoreError("upserting directory entries", err)
	}
	return n, nil
}

// Import bulk-loads roster entries from CSV rows of `email,group,cohort`.
// A header row is skipped when its first cell is not an email; group & cohort columns are optional.
func (svc *Service) Import(ctx context.Context, r io.Reader) (int, error) {
	entries, err := ParseCSV(r)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	return svc.Add(ctx, entries...)
}

func ParseCSV(r io.Reader) ([]Entry, error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1
	rdr.TrimLeadingSpace = true

	var entries []Entry
	seen := make(map[string]int)
	for line := 1; ; line++ {
		row, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading csv line %d", line)
		}
		if len(row) == 0 || core.CleanString(row[0]) == "" {
			continue
		}
		if line == 1 && !strings.Contains(row[0], "@") {
			continue // header
		}

		e := Entry{Email: row[0]}
		if len(row) > 1 {
			e.Group = row[1]
		}
		if len(row) > 2 {
			e.Cohort = row[2]
		}
		e.Clean()
		if !strings.Contains(e.Email, "@") {
			return nil, errors.Wrapf(ErrInvalidEmail, "csv line %d: %q", line, e.Email)
		}
		// last row wins for duplicated emails
		if i, ok := seen[e.Email]; ok {
			entries[i] = e
			continue
		}
		seen[e.Email] = len(entries)
		entries = append(entries, e)
	}
	return entries, nil
}
