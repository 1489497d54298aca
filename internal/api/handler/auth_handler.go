package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edusuite/platform/internal/api/middleware"
	"github.com/edusuite/platform/internal/core/domain"
	"github.com/edusuite/platform/internal/core/policy"
	"github.com/edusuite/platform/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" validate:"required"`
	TenantID  string `json:"tenant_id" validate:"required"`
	BranchID  string `json:"branch_id"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type updatePasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Session     *domain.Session     `json:"session,omitempty"`
	Profile     *domain.UserProfile `json:"profile,omitempty"`
	LandingPath string              `json:"landing_path,omitempty"`
}

type passwordPolicyResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations"`
}

// Register creates a new identity plus its profile row.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  domain.Identity
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  passwordPolicyResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// The complete violation list goes back to the caller so the form can
	// render every unmet rule, not just the first.
	if check := policy.ValidatePassword(req.Password); !check.Valid {
		return c.JSON(http.StatusUnprocessableEntity, passwordPolicyResponse{
			Error:      domain.ErrWeakPassword.Error(),
			Violations: check.Errors,
		})
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown role")
	}

	identity, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
		TenantID:  req.TenantID,
		BranchID:  req.BranchID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, identity)
}

// Login authenticates a user and sets the session cookies.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	setSessionCookies(c, result.Session)
	return c.JSON(http.StatusOK, sessionResponse{
		Session:     result.Session,
		Profile:     result.Profile,
		LandingPath: result.LandingPath,
	})
}

// Logout invalidates the session and clears the cookies.
//
// @Summary      Logout
// @Tags         auth
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context(), cookieValue(c, middleware.RefreshTokenCookie)); err != nil {
		return err
	}
	clearSessionCookies(c)
	return c.NoContent(http.StatusNoContent)
}

// Refresh rotates the refresh token and sets fresh session cookies.
//
// @Summary      Refresh session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	session, err := h.authService.Refresh(c.Request().Context(), cookieValue(c, middleware.RefreshTokenCookie))
	if err != nil {
		return err
	}

	setSessionCookies(c, session)
	return c.JSON(http.StatusOK, sessionResponse{Session: session})
}

// ForgotPassword requests a password-reset email. Always answers 202 so the
// endpoint cannot be used to probe for accounts.
//
// @Summary      Request a password reset email
// @Tags         auth
// @Accept       json
// @Success      202
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

// UpdatePassword replaces the caller's credential. The access token comes
// from the session cookie or a bearer header (recovery flow).
//
// @Summary      Update password
// @Tags         auth
// @Accept       json
// @Success      204
// @Failure      401  {object}  map[string]string
// @Failure      422  {object}  passwordPolicyResponse
// @Router       /auth/update-password [post]
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var req updatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if check := policy.ValidatePassword(req.Password); !check.Valid {
		return c.JSON(http.StatusUnprocessableEntity, passwordPolicyResponse{
			Error:      domain.ErrWeakPassword.Error(),
			Violations: check.Errors,
		})
	}

	token := cookieValue(c, middleware.AccessTokenCookie)
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		return domain.ErrNoSession
	}

	if err := h.authService.UpdatePassword(c.Request().Context(), token, req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me echoes the identity the gate attached to the request.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /profile/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	userID, _ := c.Get(middleware.ContextUserID).(string)
	if userID == "" {
		return domain.ErrNoSession
	}

	out := map[string]string{
		"user_id":   userID,
		"role":      c.Request().Header.Get(middleware.HeaderUserRole),
		"tenant_id": c.Request().Header.Get(middleware.HeaderTenantID),
	}
	if branch := c.Request().Header.Get(middleware.HeaderBranchID); branch != "" {
		out["branch_id"] = branch
	}
	return c.JSON(http.StatusOK, out)
}

func setSessionCookies(c echo.Context, session *domain.Session) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    session.AccessToken,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     middleware.RefreshTokenCookie,
		Value:    session.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(c echo.Context) {
	expired := time.Unix(0, 0)
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  expired,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
