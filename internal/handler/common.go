package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/healing-center/internal/model"
)

// getUserID extracts the authenticated user's ID from the context. The JWT
// middleware stores the sub claim without normalizing its type, so every
// plausible representation is accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// isAdmin reports whether the authenticated caller carries the admin role.
func isAdmin(c echo.Context) bool {
	role, ok := c.Get("role").(string)
	return ok && role == model.RoleAdmin
}

// requestLang resolves the response language for a request: the lang query
// parameter wins, otherwise the configured default applies. The result is
// always a supported code.
func requestLang(c echo.Context, defaultLang string) string {
	lang := c.QueryParam("lang")
	if lang == "" {
		lang = defaultLang
	}
	return model.NormalizeLang(lang)
}

// pathID parses a numeric path parameter; zero is treated as invalid.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
