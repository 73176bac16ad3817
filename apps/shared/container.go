package shared

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoweb "github.com/trezcool/dailies/apps/web/echo"
	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/access"
	"github.com/trezcool/dailies/core/daily"
	"github.com/trezcool/dailies/core/directory"
	"github.com/trezcool/dailies/core/report"
	advisorysvc "github.com/trezcool/dailies/services/advisory"
	emailsvc "github.com/trezcool/dailies/services/email"
	logsvc "github.com/trezcool/dailies/services/logger"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func stdLogger(prefix string) *log.Logger {
	return log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
}

func NewLogger(conf *core.Config, prefix string) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(stdLogger(prefix), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newConfig(app core.App) (*core.Config, error) {
	conf, err := core.NewConfig()
	if err != nil {
		return nil, err
	}
	if err = conf.Require(app); err != nil {
		return nil, err
	}
	return conf, nil
}

func newDeps(app core.App, conf *core.Config, loggerParam DBLoggerParam) (*Deps, error) {
	deps, err := Open(context.Background(), conf, app)
	if err != nil {
		loggerParam.Logger.Error(fmt.Sprintf("setting up stores: %v", err), err)
		return nil, err
	}
	return deps, nil
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	daily.InitValidators(validate, translator)
	return validate, translator
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, stdLogger("MAIL"))
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newAdvisoryService returns nil when the advisory feature is off.
// Without an API key, DEV mode answers from the console.
func newAdvisoryService(conf *core.Config) core.AdvisoryService {
	switch {
	case !conf.Advisory.Enabled:
		return nil
	case conf.Debug && conf.Advisory.APIKey == "":
		return advisorysvc.NewConsoleService(stdLogger("ADVISORY"))
	default:
		return advisorysvc.NewOpenAIService(conf.Advisory, &http.Client{Timeout: conf.Advisory.Timeout})
	}
}

func newDailyService(
	repo daily.Repository,
	validate *validator.Validate,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *daily.Service {
	return daily.NewService(repo, validate, mailSvc, logger, daily.Options{
		ResetAfterSubmit: conf.Session.ResetAfterSubmit,
		SendReceipts:     conf.Mail.SendReceipts,
	})
}

func newServer(app core.App, deps echoweb.ServerDeps) (*echoweb.Server, error) {
	if app == core.AppDashboard {
		return echoweb.NewDashboardServer(deps)
	}
	return echoweb.NewDailyServer(deps)
}

// NewContainer returns the dependency injection container of `app`.
// Dependencies are only built when an Invoke needs them, so the admin CLI never builds a server.
func NewContainer(app core.App) *dig.Container {
	c := dig.New()

	must(c.Provide(func() core.App { return app }))
	must(c.Provide(newConfig))
	must(c.Provide(func(conf *core.Config) *logsvc.RollbarLogger {
		return NewLogger(conf, strings.ToUpper(string(app)))
	}))
	must(c.Provide(func(l *logsvc.RollbarLogger) core.Logger { return l }))
	must(c.Provide(func(conf *core.Config) core.Logger { return NewLogger(conf, "DB") }, dig.Name("dbLogger")))
	must(c.Provide(newDeps))
	must(c.Provide(func(d *Deps) directory.Repository { return d.DirectoryRepo }))
	must(c.Provide(func(d *Deps) daily.Repository { return d.DailyRepo }))
	must(c.Provide(func(d *Deps) access.SessionStore { return d.Sessions }))
	must(c.Provide(newValidator))
	must(c.Provide(newEmailService))
	must(c.Provide(newAdvisoryService))
	must(c.Provide(directory.NewService))
	must(c.Provide(newDailyService))
	must(c.Provide(report.NewService))
	must(c.Provide(func(dirSvc *directory.Service, conf *core.Config) *access.Gate {
		return access.NewGate(dirSvc, conf.Admin)
	}))
	must(c.Provide(func(
		conf *core.Config,
		logger core.Logger,
		sessions access.SessionStore,
		gate *access.Gate,
		dailySvc *daily.Service,
		reportSvc *report.Service,
		translator ut.Translator,
	) echoweb.ServerDeps {
		return echoweb.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Sessions:   sessions,
			Gate:       gate,
			DailySvc:   dailySvc,
			ReportSvc:  reportSvc,
			Translator: translator,
		}
	}))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
