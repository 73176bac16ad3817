package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/report"
)

var (
	dashboardPages = []string{"dashboard_login.html", "dashboard.html"}

	titleDashboardLogin = "Admin Dashboard - Login"
	titleDashboard      = "Admin Dashboard - Dailies"
)

type (
	askForm struct {
		report.Filters
		Question string `form:"question" json:"question"`
	}

	dashboardData struct {
		View   report.View    `json:"view"`
		Answer *report.Answer `json:"answer,omitempty"`
	}
)

type dashboardAPI struct {
	*Server
}

func registerDashboardRoutes(s *Server) {
	api := dashboardAPI{Server: s}
	s.app.GET("/", api.home)
	s.app.POST("/login", api.login)
	s.app.GET("/report.json", api.reportJSON)
	s.app.POST("/ask", api.ask)
	s.app.POST("/logout", api.logout)
}

func (api dashboardAPI) renderLogin(ctx echo.Context, code int, email, errMsg string) error {
	p := api.newPage(ctx, titleDashboardLogin)
	p.Error = errMsg
	p.Data = email
	return api.render(ctx, code, "dashboard_login.html", p)
}

// renderReport renders the dashboard for `filters`. A store failure is shown on the page.
func (api dashboardAPI) renderReport(ctx echo.Context, filters report.Filters, question *string) error {
	sess := contextSession(ctx)
	view, err := api.ReportSvc.Build(ctx.Request().Context(), sess, filters)

	p := api.newPage(ctx, titleDashboard)
	code := http.StatusOK
	switch {
	case core.IsStoreUnavailable(err):
		api.Logger.Error(msgStoreUnavailable, logArgs(ctx, err)...)
		code = http.StatusServiceUnavailable
		p.Error = msgStoreUnavailable
		view.Filters = filters
	case err != nil:
		return errors.Wrap(err, "building report")
	}

	data := dashboardData{View: view}
	if question != nil && err == nil {
		ans := api.ReportSvc.Ask(ctx.Request().Context(), sess, view, *question)
		data.Answer = &ans
	}
	p.Data = data
	return api.render(ctx, code, "dashboard.html", p)
}

func (api dashboardAPI) home(ctx echo.Context) error {
	if !contextSession(ctx).IsAdmitted() {
		return api.renderLogin(ctx, http.StatusOK, "", "")
	}
	var filters report.Filters
	if err := ctx.Bind(&filters); err != nil {
		return err
	}
	return api.renderReport(ctx, filters, nil)
}

func (api dashboardAPI) login(ctx echo.Context) error {
	var form loginForm
	if err := ctx.Bind(&form); err != nil {
		return err
	}

	sess := contextSession(ctx)
	res, err := api.Gate.AdmitAdmin(sess, form.Email, form.Token)
	if err != nil {
		return errors.Wrap(err, "admitting admin")
	}
	if !res.OK {
		return api.renderLogin(ctx, http.StatusUnauthorized, form.Email, res.Reason)
	}
	if err = api.sessions.save(ctx, *sess); err != nil {
		return err
	}
	if wantsJSON(ctx) {
		return ctx.JSON(http.StatusOK, sess)
	}
	return ctx.Redirect(http.StatusSeeOther, "/")
}

func (api dashboardAPI) reportJSON(ctx echo.Context) error {
	var filters report.Filters
	if err := ctx.Bind(&filters); err != nil {
		return err
	}
	view, err := api.ReportSvc.Build(ctx.Request().Context(), contextSession(ctx), filters)
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api dashboardAPI) ask(ctx echo.Context) error {
	if !contextSession(ctx).IsAdmitted() {
		return api.renderLogin(ctx, http.StatusUnauthorized, "", msgNotAdmitted)
	}
	var form askForm
	if err := ctx.Bind(&form); err != nil {
		return err
	}
	return api.renderReport(ctx, form.Filters, &form.Question)
}

func (api dashboardAPI) logout(ctx echo.Context) error {
	if err := api.sessions.destroy(ctx, *contextSession(ctx)); err != nil {
		return err
	}
	if wantsJSON(ctx) {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.Redirect(http.StatusSeeOther, "/")
}
