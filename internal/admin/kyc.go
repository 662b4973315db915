package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/utils"
)

// GET /admin/kyc/pending
func (h *Handler) PendingKYC(c echo.Context) error {
	docs, err := h.svc.PendingKYC(c.Request().Context(), limitParam(c))
	if err != nil {
		return utils.LedgerError(c, err)
	}
	if docs == nil {
		docs = []ledger.KYCDocument{}
	}
	return c.JSON(http.StatusOK, echo.Map{"kyc_documents": docs})
}

// POST /admin/kyc/:id/approve
func (h *Handler) ApproveKYC(c echo.Context) error {
	return h.review(c, true)
}

// POST /admin/kyc/:id/reject
func (h *Handler) RejectKYC(c echo.Context) error {
	return h.review(c, false)
}

func (h *Handler) review(c echo.Context, approve bool) error {
	adminID, ok := utils.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "document id required"})
	}

	var req struct {
		Reason string `json:"reason" form:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if !approve && req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: reason required"})
	}

	doc, err := h.svc.ReviewKYC(c.Request().Context(), id, adminID, approve, req.Reason)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "kyc " + string(doc.Status), "document": doc})
}
