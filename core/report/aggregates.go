package report

import (
	"sort"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/daily"
)

// maxFilledDays bounds zero-filling of the daily series; wider ranges are filled between the observed dates only.
const maxFilledDays = 3 * 366

// Dataset is the filtered set of records a report is computed from.
// Its aggregates are recomputed from scratch on every call and never modify the records.
type Dataset struct {
	records []daily.Record
	rng     core.DateRange
}

func NewDataset(records []daily.Record, rng core.DateRange) Dataset {
	return Dataset{records: records, rng: rng}
}

func (ds Dataset) Len() int { return len(ds.records) }

// DailyCounts counts records per calendar date across the range, zero-count days included.
func (ds Dataset) DailyCounts() DailySeries {
	counts := make(map[core.Date]int)
	var first, last core.Date
	for _, rec := range ds.records {
		if rec.Date.IsZero() {
			continue
		}
		counts[rec.Date]++
		if first.IsZero() || rec.Date.Before(first) {
			first = rec.Date
		}
		if last.IsZero() || rec.Date.After(last) {
			last = rec.Date
		}
	}
	if len(counts) == 0 {
		return DailySeries{NoData: true}
	}

	start, end := first, last
	if !ds.rng.From.IsZero() {
		start = ds.rng.From
	}
	if !ds.rng.To.IsZero() {
		end = ds.rng.To
	}
	if daysBetween(start, end) > maxFilledDays {
		start, end = first, last
	}

	series := DailySeries{Points: make([]DailyCount, 0, daysBetween(start, end)+1)}
	for d := start; !d.After(end); d = d.AddDays(1) {
		cnt := counts[d]
		series.Points = append(series.Points, DailyCount{Date: d, Count: cnt})
		if cnt > series.Max {
			series.Max = cnt
		}
	}
	return series
}

// WeeklyPivot counts records per (ISO week, progress), weeks in chronological order.
func (ds Dataset) WeeklyPivot() WeeklyPivot {
	type weekKey struct{ year, week int }
	rows := make(map[weekKey]*WeekRow)
	for _, rec := range ds.records {
		if rec.Date.IsZero() || !rec.Progress.IsValid() {
			continue
		}
		prog, _ := daily.ParseProgress(string(rec.Progress))
		year, week := rec.Date.ISOWeek()
		key := weekKey{year, week}
		row, ok := rows[key]
		if !ok {
			row = &WeekRow{Year: year, Week: week, Counts: make(map[daily.Progress]int)}
			rows[key] = row
		}
		row.Counts[prog]++
		row.Total++
	}
	if len(rows) == 0 {
		return WeeklyPivot{NoData: true}
	}

	pivot := WeeklyPivot{
		Progresses: progressValues(),
		Weeks:      make([]WeekRow, 0, len(rows)),
	}
	for _, row := range rows {
		pivot.Weeks = append(pivot.Weeks, *row)
		if row.Total > pivot.Max {
			pivot.Max = row.Total
		}
	}
	sort.Slice(pivot.Weeks, func(i, j int) bool {
		wi, wj := pivot.Weeks[i], pivot.Weeks[j]
		if wi.Year != wj.Year {
			return wi.Year < wj.Year
		}
		return wi.Week < wj.Week
	})
	return pivot
}

// PerEmail counts records per email, by count descending then email ascending.
func (ds Dataset) PerEmail() Leaderboard {
	counts := make(map[string]int)
	for _, rec := range ds.records {
		if rec.Email == "" {
			continue
		}
		counts[rec.Email]++
	}
	if len(counts) == 0 {
		return Leaderboard{NoData: true}
	}

	board := Leaderboard{Rows: make([]EmailCount, 0, len(counts))}
	for email, cnt := range counts {
		board.Rows = append(board.Rows, EmailCount{Email: email, Count: cnt})
		if cnt > board.Max {
			board.Max = cnt
		}
	}
	sort.Slice(board.Rows, func(i, j int) bool {
		ri, rj := board.Rows[i], board.Rows[j]
		if ri.Count != rj.Count {
			return ri.Count > rj.Count
		}
		return ri.Email < rj.Email
	})
	return board
}

func (ds Dataset) Gaps() Gaps {
	var gaps Gaps
	for _, rec := range ds.records {
		if rec.Date.IsZero() {
			gaps.MissingDate++
		}
		if !rec.Progress.IsValid() {
			gaps.InvalidProgress++
		}
		if rec.Email == "" {
			gaps.MissingEmail++
		}
	}
	return gaps
}

// Participants returns the sorted distinct emails of the dataset.
func (ds Dataset) Participants() []string {
	seen := make(map[string]struct{})
	emails := make([]string, 0)
	for _, rec := range ds.records {
		if _, ok := seen[rec.Email]; ok || rec.Email == "" {
			continue
		}
		seen[rec.Email] = struct{}{}
		emails = append(emails, rec.Email)
	}
	sort.Strings(emails)
	return emails
}

func progressValues() []daily.Progress {
	vals := make([]daily.Progress, 0, len(daily.Progresses))
	for _, opt := range daily.Progresses {
		vals = append(vals, opt.Value)
	}
	return vals
}

func daysBetween(from, to core.Date) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Time().Sub(from.Time()).Hours() / 24)
}
