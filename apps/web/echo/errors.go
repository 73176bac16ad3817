package echoweb

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/access"
)

var (
	msgStoreUnavailable = "The data store is unavailable. Please try again later."
	msgNotAdmitted      = "Please log in first."
)

// wantsJSON tells API calls apart from browser navigation.
func wantsJSON(ctx echo.Context) bool {
	req := ctx.Request()
	return strings.HasSuffix(req.URL.Path, ".json") ||
		strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) ||
		strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, appName string, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		origErr := errors.Cause(err)
		switch {
		case core.IsStoreUnavailable(err):
			code = http.StatusServiceUnavailable
			message = msgStoreUnavailable
			logger.Error(msgStoreUnavailable, logArgs(ctx, err)...)
		case origErr == access.ErrNotAdmitted || origErr == access.ErrWrongRole:
			code = http.StatusUnauthorized
			message = msgNotAdmitted
		default:
			switch e := origErr.(type) {
			case *echo.HTTPError:
				if e.Internal != nil {
					if herr, ok := e.Internal.(*echo.HTTPError); ok {
						e = herr
					}
				}
				code = e.Code
				message = e.Message
			case validator.ValidationErrors, *core.ValidationError:
				code = http.StatusBadRequest
				message = core.TranslateErrors(e, translator)
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, logArgs(ctx, errors.Wrap(err, msg))...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}

		// Send response
		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else if wantsJSON(ctx) {
			if m, ok := message.(string); ok {
				message = echo.Map{"error": m}
			}
			err = ctx.JSON(code, message)
		} else {
			p := page{Title: http.StatusText(code), AppName: appName, Session: contextSession(ctx)}
			switch m := message.(type) {
			case string:
				p.Error = m
			case map[string]string:
				p.Error = "Please correct the errors below."
				p.Fields = m
			default:
				p.Error = http.StatusText(code)
			}
			err = ctx.Render(code, "error.html", p)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

// logArgs appends the request session, when there is one, to the logged `args`.
func logArgs(ctx echo.Context, args ...interface{}) []interface{} {
	if sess := contextSession(ctx); sess != nil {
		args = append(args, *sess)
	}
	return args
}
