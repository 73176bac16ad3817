package directory

import (
	"sort"

	"github.com/trezcool/dailies/core"
)

// Entry is one permitted email of the roster, with its optional group & cohort labels.
type Entry struct {
	Email  string `json:"email"`
	Group  string `json:"group"`
	Cohort string `json:"cohort"`
}

func (e *Entry) Clean() {
	e.Email = core.CleanString(e.Email)
	e.Group = core.CleanString(e.Group)
	e.Cohort = core.CleanString(e.Cohort)
}

// QueryFilter applies AND on its set fields; empty fields match everything.
type QueryFilter struct {
	Group  string `query:"group" form:"group"`
	Cohort string `query:"cohort" form:"cohort"`
}

func (qf *QueryFilter) Clean() {
	qf.Group = core.CleanString(qf.Group)
	qf.Cohort = core.CleanString(qf.Cohort)
}

func (qf QueryFilter) IsEmpty() bool {
	return qf.Group == "" && qf.Cohort == ""
}

func (qf QueryFilter) Matches(e Entry) bool {
	if qf.Group != "" && e.Group != qf.Group {
		return false
	}
	if qf.Cohort != "" && e.Cohort != qf.Cohort {
		return false
	}
	return true
}

// Apply returns the entries matching the filter, preserving order.
func (qf QueryFilter) Apply(entries []Entry) []Entry {
	if qf.IsEmpty() {
		return entries
	}
	filtered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if qf.Matches(e) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// Emails returns the emails of `entries`, in order. Never nil.
func Emails(entries []Entry) []string {
	emails := make([]string, 0, len(entries))
	for _, e := range entries {
		emails = append(emails, e.Email)
	}
	return emails
}

// Groups returns the sorted distinct non-empty groups of `entries`.
func Groups(entries []Entry) []string {
	return distinct(entries, func(e Entry) string { return e.Group })
}

// Cohorts returns the sorted distinct non-empty cohorts of `entries`.
func Cohorts(entries []Entry) []string {
	return distinct(entries, func(e Entry) string { return e.Cohort })
}

func distinct(entries []Entry, key func(Entry) string) []string {
	seen := make(map[string]struct{})
	vals := make([]string, 0)
	for _, e := range entries {
		k := key(e)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			vals = append(vals, k)
		}
	}
	sort.Strings(vals)
	return vals
}
