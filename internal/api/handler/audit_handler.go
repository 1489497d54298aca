package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/edusuite/platform/internal/core/ports"
)

const defaultAuditLimit = 50

// AuditHandler exposes the auth audit trail to administrators.
type AuditHandler struct {
	repo ports.AuditRepository
}

func NewAuditHandler(repo ports.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

// List returns the most recent audit entries for an identity.
//
// @Summary      List audit entries for an identity
// @Tags         audit
// @Produce      json
// @Param        identity_id  query     string  true   "Identity id"
// @Param        limit        query     int     false  "Max entries (default 50)"
// @Success      200  {array}   domain.AuditEntry
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /settings/audit [get]
func (h *AuditHandler) List(c echo.Context) error {
	identityID := c.QueryParam("identity_id")
	if identityID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "identity_id is required")
	}

	limit := int64(defaultAuditLimit)
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	entries, err := h.repo.ListByIdentity(c.Request().Context(), identityID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}
