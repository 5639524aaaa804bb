package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-recommender/internal/config"
	"github.com/iliyamo/cinema-recommender/internal/logging"
	"github.com/iliyamo/cinema-recommender/internal/utils"
)

// AuthHandler issues operator access tokens.
type AuthHandler struct {
	Operator  config.OperatorConfig
	JWTSecret string
	AccessTTL time.Duration
}

// NewAuthHandler builds an AuthHandler from the application config.
func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{Operator: cfg.Operator, JWTSecret: cfg.JWTSecret, AccessTTL: cfg.AccessTTL}
}

type loginReq struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
	Role    string    `json:"role"`
}

// Login handles POST /v1/auth/login.  The password is checked against the
// configured bcrypt hash; both a wrong name and a wrong password give 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	nameOK := subtle.ConstantTimeCompare([]byte(req.Name), []byte(h.Operator.Name)) == 1
	passOK := utils.VerifyPassword(h.Operator.PasswordHash, req.Password)
	if !nameOK || !passOK {
		logging.Warn().Str("name", req.Name).Str("ip", c.RealIP()).Msg("operator login rejected")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, h.Operator.Name, utils.RoleOperator, h.AccessTTL)
	if err != nil {
		logging.Error().Err(err).Msg("sign access token")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
	}
	return c.JSON(http.StatusOK, tokenResp{Token: tok.Token, Expires: tok.Exp, Role: utils.RoleOperator})
}
