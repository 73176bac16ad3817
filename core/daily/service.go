package daily

import (
	"context"
	"net/mail"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/access"
)

var receiptTmpl = template.Must(template.New("receipt").Parse(`Hi {{.Email}},

here is a copy of the daily you submitted for {{.Date}}.

Task: {{.TaskDescription}}
Progress: {{.Progress.Label}}
{{- if .ObstacleDescription}}
Obstacles: {{.ObstacleDescription}}
{{- end}}
Next steps: {{.NextSteps}}
{{- if .AdditionalComments}}
Comments: {{.AdditionalComments}}
{{- end}}
`))

type (
	Repository interface {
		// CreateRecord appends one record; it is never merged with an existing one.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
	}

	Options struct {
		// ResetAfterSubmit revokes the session after each successful submit, forcing a new admission.
		ResetAfterSubmit bool
		SendReceipts     bool
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		mailSvc  core.EmailService
		logger   core.Logger
		opts     Options
	}
)

func NewService(repo Repository, validate *validator.Validate, mailSvc core.EmailService, logger core.Logger, opts Options) *Service {
	return &Service{
		repo:     repo,
		validate: validate,
		mailSvc:  mailSvc,
		logger:   logger,
		opts:     opts,
	}
}

// Submit appends one Record for the identity of the admitted student session.
// The obstacle description is only kept when progress is blocked.
func (svc *Service) Submit(ctx context.Context, sess *access.Session, nd NewDaily) (Record, error) {
	if err := sess.Require(access.RoleStudent); err != nil {
		return Record{}, err
	}
	if err := nd.Validate(svc.validate); err != nil {
		return Record{}, err
	}
	if nd.Date.IsZero() {
		nd.Date = core.Today()
	}

	rec := Record{
		ID:                  uuid.New().String(),
		Email:               sess.Identity,
		Date:                nd.Date,
		TaskDescription:     nd.TaskDescription,
		Progress:            nd.Progress,
		ObstacleDescription: nd.ObstacleDescription,
		NextSteps:           nd.NextSteps,
		AdditionalComments:  nd.AdditionalComments,
		CreatedAt:           time.Now().UTC(),
	}
	if rec.Progress != ProgressBlocked {
		rec.ObstacleDescription = ""
	}

	rec, err := svc.repo.CreateRecord(ctx, rec)
	if err != nil {
		return Record{}, core.NewStoreError("inserting daily", err)
	}

	if svc.opts.ResetAfterSubmit {
		sess.Revoke()
	}
	if svc.opts.SendReceipts && svc.mailSvc != nil {
		svc.sendReceipt(rec)
	}
	return rec, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	if filter.Emails != nil && len(filter.Emails) == 0 {
		return []Record{}, nil
	}
	recs, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return nil, core.NewStoreError("querying dailies", err)
	}
	return recs, nil
}

func (svc *Service) sendReceipt(rec Record) {
	body := new(strings.Builder)
	if err := receiptTmpl.Execute(body, rec); err != nil {
		svc.logger.Error("rendering daily receipt", errors.Wrap(err, "rendering daily receipt"))
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Address: rec.Email}},
		Subject:     "Your daily for " + rec.Date.String(),
		TextContent: body.String(),
	})
}
