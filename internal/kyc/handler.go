package kyc

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/utils"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

type SubmitRequest struct {
	DocumentType   string `json:"document_type" form:"document_type"`
	DocumentNumber string `json:"document_number" form:"document_number"`
}

// Documents lists the user's submitted KYC documents, newest first.
func (h *Handler) Documents(c echo.Context) error {
	uid, ok := utils.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	docs, err := h.svc.KYCDocuments(c.Request().Context(), ledger.KYCFilter{UserID: uid})
	if err != nil {
		return utils.LedgerError(c, err)
	}
	if docs == nil {
		docs = []ledger.KYCDocument{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"kyc_documents":  docs,
		"document_types": ledger.DocumentTypes,
	})
}

// Submit records a new pending document.
func (h *Handler) Submit(c echo.Context) error {
	uid, ok := utils.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(SubmitRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	doc, err := h.svc.SubmitKYC(c.Request().Context(), uid, req.DocumentType, req.DocumentNumber)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "KYC submitted. Verification may take 24-48 hours.",
		"document": doc,
	})
}
