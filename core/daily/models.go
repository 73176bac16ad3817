package daily

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dailies/core"
)

// Progress of the task reported in a daily.
type Progress string

const (
	ProgressCompleted  Progress = "completed"
	ProgressInProgress Progress = "in_progress"
	ProgressBlocked    Progress = "blocked"
)

var (
	Progresses = []ProgressOption{
		{Name: "Completed", Value: ProgressCompleted},
		{Name: "In Progress", Value: ProgressInProgress},
		{Name: "Obstacles Found", Value: ProgressBlocked},
	}

	// labels written by the first version of the form, still found in old documents
	legacyProgressLabels = map[string]Progress{
		"Concluído":              ProgressCompleted,
		"Em Progresso":           ProgressInProgress,
		"Obstáculos Encontrados": ProgressBlocked,
	}
)

type ProgressOption struct {
	Name  string   `json:"name"`
	Value Progress `json:"value"`
}

// ParseProgress accepts a Progress value, its display name or a legacy label.
func ParseProgress(s string) (Progress, bool) {
	s = core.CleanString(s)
	for _, opt := range Progresses {
		if s == string(opt.Value) || s == opt.Name {
			return opt.Value, true
		}
	}
	if p, ok := legacyProgressLabels[s]; ok {
		return p, true
	}
	return "", false
}

func (p Progress) IsValid() bool {
	_, ok := ParseProgress(string(p))
	return ok && p != ""
}

func (p Progress) Label() string {
	for _, opt := range Progresses {
		if opt.Value == p {
			return opt.Name
		}
	}
	return string(p)
}

// Record is one daily submission. Records are append-only: never updated nor deleted.
type Record struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	Date                core.Date `json:"date"`
	TaskDescription     string    `json:"task_description"`
	Progress            Progress  `json:"progress_status"`
	ObstacleDescription string    `json:"obstacle_description"`
	NextSteps           string    `json:"next_steps"`
	AdditionalComments  string    `json:"additional_comments"`
	CreatedAt           time.Time `json:"created_at"` // UTC
}

// NewDaily contains the fields a student submits.
type NewDaily struct {
	Date                core.Date `form:"date" json:"date"`
	TaskDescription     string    `form:"task_description" json:"task_description" validate:"required"`
	Progress            Progress  `form:"progress_status" json:"progress_status" validate:"required,progress"`
	ObstacleDescription string    `form:"obstacle_description" json:"obstacle_description"`
	NextSteps           string    `form:"next_steps" json:"next_steps" validate:"required"`
	AdditionalComments  string    `form:"additional_comments" json:"additional_comments" validate:"required"`
}

// Clean trims the free-text fields and drops the obstacle description unless progress is blocked.
func (nd *NewDaily) Clean() {
	nd.TaskDescription = core.CleanString(nd.TaskDescription)
	nd.ObstacleDescription = core.CleanString(nd.ObstacleDescription)
	nd.NextSteps = core.CleanString(nd.NextSteps)
	nd.AdditionalComments = core.CleanString(nd.AdditionalComments)
	if p, ok := ParseProgress(string(nd.Progress)); ok {
		nd.Progress = p
	}
	if nd.Progress != ProgressBlocked {
		nd.ObstacleDescription = ""
	}
}

func (nd *NewDaily) Validate(validate *validator.Validate) error {
	nd.Clean()
	return validate.Struct(nd)
}

type QueryFilter struct {
	// Emails restricts records to these emails; nil means every email, an empty non-nil slice matches nothing.
	Emails []string
	Range  core.DateRange
}
