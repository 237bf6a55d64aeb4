package api

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medreport/viewer/internal/session"
)

const sessionContextKey = "session"

// RequestLogger logs one line per request.
func RequestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			evt := logger.Info()
			if err != nil {
				evt = logger.Warn().Err(err)
			}
			evt.
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return nil
		}
	}
}

// Recovery turns a handler panic into a 500 and logs the stack.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)

					logger.Error().
						Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(stack[:n])).
						Msg("panic recovered")

					err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
				}
			}()
			return next(c)
		}
	}
}

// SessionCookie attaches the browser's session to the context. The cookie is
// re-issued on every request so its lifetime slides with the server-side
// idle timeout.
func SessionCookie(sessions SessionStore, cookieName string, maxAge time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var id string
			if cookie, err := c.Cookie(cookieName); err == nil {
				id = cookie.Value
			}

			sess := sessions.GetOrCreate(id)
			c.SetCookie(&http.Cookie{
				Name:     cookieName,
				Value:    sess.ID,
				Path:     "/",
				MaxAge:   int(maxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})

			c.Set(sessionContextKey, sess)
			return next(c)
		}
	}
}

// sessionFrom returns the session attached by SessionCookie.
func sessionFrom(c echo.Context) (*session.Session, error) {
	sess, ok := c.Get(sessionContextKey).(*session.Session)
	if !ok || sess == nil {
		return nil, NewInternalError("session not initialised", nil)
	}
	return sess, nil
}
