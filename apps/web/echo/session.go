package echoweb

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/access"
)

var contextSessionKey = "session"

// Claims carried by the session cookie. The session itself lives in the access.SessionStore.
type Claims struct {
	jwt.StandardClaims
}

type sessionManager struct {
	store      access.SessionStore
	role       access.Role
	secretKey  []byte
	issuer     string
	cookieName string
	secure     bool
	ttl        time.Duration
	logger     core.Logger
}

func newSessionManager(role access.Role, store access.SessionStore, conf *core.Config, logger core.Logger) *sessionManager {
	return &sessionManager{
		store:      store,
		role:       role,
		secretKey:  []byte(conf.SecretKey),
		issuer:     conf.AppName,
		cookieName: conf.Server.SessionCookie + "_" + string(role),
		secure:     conf.Server.SecureCookie,
		ttl:        conf.Server.SessionTTL,
		logger:     logger,
	}
}

// generateToken signs the cookie value of `sess`.
func (m *sessionManager) generateToken(sess access.Session) (string, error) {
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        sess.ID,
			Issuer:    m.issuer,
			Audience:  string(m.role),
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: sess.ExpiresAt.Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// parseToken returns the session ID of a valid cookie value.
func (m *sessionManager) parseToken(tokenString string) (string, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || !claims.VerifyAudience(string(m.role), true) || claims.Id == "" {
		return "", errors.New("invalid session token")
	}
	return claims.Id, nil
}

// load returns the session of the request cookie, or a fresh unadmitted one.
func (m *sessionManager) load(ctx echo.Context) (access.Session, error) {
	cookie, err := ctx.Cookie(m.cookieName)
	if err == nil && cookie.Value != "" {
		if id, tErr := m.parseToken(cookie.Value); tErr == nil {
			sess, sErr := m.store.Get(ctx.Request().Context(), id)
			switch {
			case sErr == nil && sess.Role == m.role && !sess.IsExpired(time.Now()):
				return sess, nil
			case sErr != nil && !errors.Is(sErr, access.ErrSessionNotFound):
				return access.Session{}, core.NewStoreError("loading session", sErr)
			}
		}
	}
	return access.NewSession(m.role, m.ttl), nil
}

// save persists `sess` and (re)sets the cookie.
func (m *sessionManager) save(ctx echo.Context, sess access.Session) error {
	if err := m.store.Save(ctx.Request().Context(), sess); err != nil {
		return core.NewStoreError("saving session", err)
	}
	token, err := m.generateToken(sess)
	if err != nil {
		return err
	}
	ctx.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// destroy deletes the session and expires the cookie.
func (m *sessionManager) destroy(ctx echo.Context, sess access.Session) error {
	if err := m.store.Delete(ctx.Request().Context(), sess.ID); err != nil {
		return core.NewStoreError("deleting session", err)
	}
	ctx.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// middleware attaches the request session to the context.
func (m *sessionManager) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, err := m.load(ctx)
		if err != nil {
			return err
		}
		ctx.Set(contextSessionKey, &sess)
		return next(ctx)
	}
}

func contextSession(ctx echo.Context) *access.Session {
	if sess, ok := ctx.Get(contextSessionKey).(*access.Session); ok {
		return sess
	}
	return nil
}
