package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	mw "github.com/OpenStreetlifting/openstreetlifting-backend/middleware"
	"github.com/OpenStreetlifting/openstreetlifting-backend/models"
)

const tokenTTL = 30 * 24 * time.Hour

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HashOperatorPassword validates username/password input and returns a
// bcrypt hash for an operator account.
func HashOperatorPassword(username, password string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", errors.New("username is required")
	}
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// WithAdmins sets the operators allowed on admin-only routes. Names are
// matched case-insensitively.
func (h *Handler) WithAdmins(names []string) *Handler {
	h.admins = h.admins[:0]
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			h.admins = append(h.admins, n)
		}
	}
	return h
}

func (h *Handler) isAdmin(username string) bool {
	return slices.Contains(h.admins, strings.ToLower(strings.TrimSpace(username)))
}

// PasswordHash returns a bcrypt hash for a new operator so it can be
// inserted by hand. Admin operators only.
func (h *Handler) PasswordHash(c echo.Context) error {
	requester, _ := c.Get("username").(string)
	if !h.isAdmin(requester) {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}

	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	hash, err := HashOperatorPassword(creds.Username, creds.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{
		"username":      strings.TrimSpace(creds.Username),
		"password_hash": hash,
	})
}

// Signin validates operator credentials and returns a JWT valid for 30 days.
func (h *Handler) Signin(c echo.Context) error {
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	creds.Username = strings.TrimSpace(creds.Username)

	op := &models.Operator{}
	err := h.db.NewSelect().Model(op).
		Where("username = ?", creds.Username).
		Scan(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.Password), []byte(creds.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}

	now := time.Now()
	token, err := mw.Sign(op.Username, h.JWTKey, jwt.RegisteredClaims{
		Subject:   op.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.log.Info("operator signed in", zap.String("username", op.Username))
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}
