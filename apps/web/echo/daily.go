package echoweb

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/daily"
)

var (
	dailyPages = []string{"daily_login.html", "daily_form.html"}

	titleDailyLogin = "Welcome! Please log in"
	titleDailyForm  = "Tech Daily Form"
	msgSubmitted    = "Form submitted successfully!"
	msgFixErrors    = "Please correct the errors below."
)

type (
	loginForm struct {
		Email string `form:"email" json:"email"`
		Token string `form:"token" json:"token"`
	}

	dailyFormData struct {
		Daily      daily.NewDaily         `json:"daily"`
		Progresses []daily.ProgressOption `json:"progresses"`
	}
)

type dailyAPI struct {
	*Server
}

func registerDailyRoutes(s *Server) {
	api := dailyAPI{Server: s}
	s.app.GET("/", api.home)
	s.app.POST("/login", api.login)
	s.app.POST("/dailies", api.submit)
	s.app.POST("/logout", api.logout)
}

func (api dailyAPI) renderForm(ctx echo.Context, code int, nd daily.NewDaily, flash, errMsg string, fields map[string]string) error {
	if nd.Date.IsZero() {
		nd.Date = core.Today()
	}
	p := api.newPage(ctx, titleDailyForm)
	p.Flash, p.Error, p.Fields = flash, errMsg, fields
	p.Data = dailyFormData{Daily: nd, Progresses: daily.Progresses}
	return api.render(ctx, code, "daily_form.html", p)
}

func (api dailyAPI) renderLogin(ctx echo.Context, code int, email, flash, errMsg string) error {
	p := api.newPage(ctx, titleDailyLogin)
	p.Flash, p.Error = flash, errMsg
	p.Data = email
	return api.render(ctx, code, "daily_login.html", p)
}

func (api dailyAPI) home(ctx echo.Context) error {
	if !contextSession(ctx).IsAdmitted() {
		return api.renderLogin(ctx, http.StatusOK, "", "", "")
	}
	return api.renderForm(ctx, http.StatusOK, daily.NewDaily{}, "", "", nil)
}

func (api dailyAPI) login(ctx echo.Context) error {
	var form loginForm
	if err := ctx.Bind(&form); err != nil {
		return err
	}

	sess := contextSession(ctx)
	res, err := api.Gate.AdmitStudent(ctx.Request().Context(), sess, form.Email)
	if err != nil {
		return errors.Wrap(err, "admitting student")
	}
	if !res.OK {
		return api.renderLogin(ctx, http.StatusUnauthorized, form.Email, "", res.Reason)
	}
	if err = api.sessions.save(ctx, *sess); err != nil {
		return err
	}
	if wantsJSON(ctx) {
		return ctx.JSON(http.StatusOK, sess)
	}
	return ctx.Redirect(http.StatusSeeOther, "/")
}

func (api dailyAPI) submit(ctx echo.Context) error {
	sess := contextSession(ctx)
	if !sess.IsAdmitted() {
		return api.renderLogin(ctx, http.StatusUnauthorized, "", "", msgNotAdmitted)
	}

	var nd daily.NewDaily
	if err := ctx.Bind(&nd); err != nil {
		return err
	}

	rec, err := api.DailySvc.Submit(ctx.Request().Context(), sess, nd)
	if err != nil {
		var vErrs validator.ValidationErrors
		switch {
		case errors.As(err, &vErrs):
			nd.Clean()
			return api.renderForm(ctx, http.StatusBadRequest, nd, "", msgFixErrors, core.TranslateErrors(vErrs, api.Translator))
		case core.IsStoreUnavailable(err):
			api.Logger.Error(msgStoreUnavailable, logArgs(ctx, err)...)
			return api.renderForm(ctx, http.StatusServiceUnavailable, nd, "", msgStoreUnavailable, nil)
		}
		return errors.Wrap(err, "submitting daily")
	}

	// the session may have been revoked by the submit
	if err = api.sessions.save(ctx, *sess); err != nil {
		return err
	}
	if wantsJSON(ctx) {
		return ctx.JSON(http.StatusCreated, rec)
	}
	if !sess.IsAdmitted() {
		return api.renderLogin(ctx, http.StatusOK, "", msgSubmitted, "")
	}
	return api.renderForm(ctx, http.StatusOK, daily.NewDaily{}, msgSubmitted, "", nil)
}

func (api dailyAPI) logout(ctx echo.Context) error {
	if err := api.sessions.destroy(ctx, *contextSession(ctx)); err != nil {
		return err
	}
	if wantsJSON(ctx) {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.Redirect(http.StatusSeeOther, "/")
}
