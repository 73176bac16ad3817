package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/access"
	"github.com/trezcool/dailies/core/daily"
	"github.com/trezcool/dailies/core/directory"
)

var (
	msgEmptyQuestion     = "Please type a question."
	msgAdvisoryDisabled  = "The advisory service is not configured."
	msgNoDailies         = "There are no dailies matching the current filters to ask about."
	msgAdvisoryFailedFmt = "The advisory service could not answer (%s). The report is still up to date."
)

type Service struct {
	dirSvc   *directory.Service
	dailySvc *daily.Service
	advisory core.AdvisoryService
	logger   core.Logger
}

func NewService(dirSvc *directory.Service, dailySvc *daily.Service, advisory core.AdvisoryService, logger core.Logger) *Service {
	return &Service{
		dirSvc:   dirSvc,
		dailySvc: dailySvc,
		advisory: advisory,
		logger:   logger,
	}
}

// Build loads the roster and the dailies matching `filters` and computes every aggregate.
// Group & cohort filter the roster first; dailies are then restricted to the remaining emails.
func (svc *Service) Build(ctx context.Context, sess *access.Session, filters Filters) (View, error) {
	if err := sess.Require(access.RoleAdmin); err != nil {
		return View{}, err
	}
	filters.Clean()

	entries, err := svc.dirSvc.List(ctx, directory.QueryFilter{})
	if err != nil {
		return View{}, errors.Wrap(err, "loading directory")
	}

	dirFilter := filters.Directory()
	filtered := dirFilter.Apply(entries)

	query := daily.QueryFilter{Range: filters.Range()}
	if !dirFilter.IsEmpty() {
		query.Emails = directory.Emails(filtered)
	}
	recs, err := svc.dailySvc.Query(ctx, query)
	if err != nil {
		return View{}, errors.Wrap(err, "loading dailies")
	}

	ds := NewDataset(recs, filters.Range())
	return View{
		Filters:  filters,
		Entries:  filtered,
		Groups:   directory.Groups(entries),
		Cohorts:  directory.Cohorts(entries),
		Records:  recs,
		Daily:    isolate(svc.logger, "daily counts", ds.DailyCounts, DailySeries{NoData: true}),
		Weekly:   isolate(svc.logger, "weekly pivot", ds.WeeklyPivot, WeeklyPivot{NoData: true}),
		PerEmail: isolate(svc.logger, "per-email counts", ds.PerEmail, Leaderboard{NoData: true}),
		Gaps:     isolate(svc.logger, "validation gaps", ds.Gaps, Gaps{}),
	}, nil
}

// Ask forwards `question` about the dailies of `view` to the advisory service.
// It never fails: problems are reported in Answer.Message and `view` is left as is.
func (svc *Service) Ask(ctx context.Context, sess *access.Session, view View, question string) Answer {
	ans := Answer{Question: core.CleanString(question)}
	if err := sess.Require(access.RoleAdmin); err != nil {
		ans.Message = err.Error()
		return ans
	}
	switch {
	case ans.Question == "":
		ans.Message = msgEmptyQuestion
		return ans
	case svc.advisory == nil:
		ans.Message = msgAdvisoryDisabled
		return ans
	case view.NoData():
		ans.Message = msgNoDailies
		return ans
	}

	ds := NewDataset(view.Records, view.Filters.Range())
	text, err := svc.advisory.Ask(ctx, ans.Question, Corpus(view.Records), ds.Participants())
	if err != nil {
		svc.logger.Error("asking advisory service", errors.Wrap(err, "asking advisory service"), *sess)
		ans.Message = fmt.Sprintf(msgAdvisoryFailedFmt, advisoryReason(err))
		return ans
	}
	if text = strings.TrimSpace(text); text == "" {
		ans.Message = fmt.Sprintf(msgAdvisoryFailedFmt, "empty answer")
		return ans
	}
	ans.Text = text
	return ans
}

// Corpus concatenates the free-text fields of `records`, one block per daily.
func Corpus(records []daily.Record) string {
	b := new(strings.Builder)
	for i, rec := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "[%s] %s\n", rec.Date, rec.Email)
		fmt.Fprintf(b, "Task: %s\n", rec.TaskDescription)
		fmt.Fprintf(b, "Progress: %s\n", rec.Progress.Label())
		if rec.ObstacleDescription != "" {
			fmt.Fprintf(b, "Obstacles: %s\n", rec.ObstacleDescription)
		}
		fmt.Fprintf(b, "Next steps: %s\n", rec.NextSteps)
		if rec.AdditionalComments != "" {
			fmt.Fprintf(b, "Comments: %s\n", rec.AdditionalComments)
		}
	}
	return b.String()
}

func advisoryReason(err error) string {
	var aerr *core.AdvisoryError
	if errors.As(err, &aerr) && aerr.Status != 0 {
		return fmt.Sprintf("status %d", aerr.Status)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timed out"
	}
	return "service unreachable"
}

// isolate runs one aggregate; a panic degrades that aggregate to `fallback` without touching the others.
func isolate[T any](logger core.Logger, name string, compute func() T, fallback T) (res T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("computing "+name, errors.Errorf("computing %s: %v", name, r))
			res = fallback
		}
	}()
	return compute()
}
