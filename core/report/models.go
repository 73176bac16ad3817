package report

import (
	"fmt"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/daily"
	"github.com/trezcool/dailies/core/directory"
)

type Filters struct {
	Group  string    `query:"group" form:"group" json:"group,omitempty"`
	Cohort string    `query:"cohort" form:"cohort" json:"cohort,omitempty"`
	From   core.Date `query:"from" form:"from" json:"from"`
	To     core.Date `query:"to" form:"to" json:"to"`
}

func (f *Filters) Clean() {
	f.Group = core.CleanString(f.Group)
	f.Cohort = core.CleanString(f.Cohort)
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		f.From, f.To = f.To, f.From
	}
}

func (f Filters) Directory() directory.QueryFilter {
	return directory.QueryFilter{Group: f.Group, Cohort: f.Cohort}
}

func (f Filters) Range() core.DateRange {
	return core.DateRange{From: f.From, To: f.To}
}

type (
	DailyCount struct {
		Date  core.Date `json:"date"`
		Count int       `json:"count"`
	}

	// DailySeries holds one point per calendar date, zero-count days included.
	DailySeries struct {
		NoData bool         `json:"no_data"`
		Points []DailyCount `json:"points"`
		Max    int          `json:"max"`
	}

	WeekRow struct {
		Year   int                    `json:"year"` // ISO-8601 year
		Week   int                    `json:"week"` // ISO-8601 week
		Counts map[daily.Progress]int `json:"counts"`
		Total  int                    `json:"total"`
	}

	// WeeklyPivot counts records per ISO week and progress status.
	WeeklyPivot struct {
		NoData     bool             `json:"no_data"`
		Progresses []daily.Progress `json:"progresses"`
		Weeks      []WeekRow        `json:"weeks"`
		Max        int              `json:"max"` // highest WeekRow.Total
	}

	EmailCount struct {
		Email string `json:"email"`
		Count int    `json:"count"`
	}

	// Leaderboard counts records per email, most dailies first.
	Leaderboard struct {
		NoData bool         `json:"no_data"`
		Rows   []EmailCount `json:"rows"`
		Max    int          `json:"max"`
	}

	// Gaps counts loaded records missing a field some aggregate needs. Such records are left out of that aggregate only.
	Gaps struct {
		MissingDate     int `json:"missing_date"`
		InvalidProgress int `json:"invalid_progress"`
		MissingEmail    int `json:"missing_email"`
	}

	View struct {
		Filters  Filters           `json:"filters"`
		Entries  []directory.Entry `json:"entries"`
		Groups   []string          `json:"groups"`
		Cohorts  []string          `json:"cohorts"`
		Records  []daily.Record    `json:"records"`
		Daily    DailySeries       `json:"daily"`
		Weekly   WeeklyPivot       `json:"weekly"`
		PerEmail Leaderboard       `json:"per_email"`
		Gaps     Gaps              `json:"gaps"`
	}

	Answer struct {
		Question string `json:"question"`
		Text     string `json:"text,omitempty"`    // the service answer, verbatim
		Message  string `json:"message,omitempty"` // shown instead of Text when there is no answer
	}
)

func (r WeekRow) Label() string {
	return fmt.Sprintf("%d-W%02d", r.Year, r.Week)
}

func (r WeekRow) Count(p daily.Progress) int {
	return r.Counts[p]
}

func (v View) NoData() bool {
	return len(v.Records) == 0
}

func (a Answer) OK() bool {
	return a.Text != ""
}
