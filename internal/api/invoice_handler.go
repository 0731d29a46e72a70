package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradeboard/internal/service"
)

type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	logger         *zap.Logger
}

func NewInvoiceHandler(invoiceService *service.InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, logger: logger}
}

// Get handles GET /projects/:id/invoice. Creates the invoice lazily the
// first time either party asks for it after completion.
func (h *InvoiceHandler) Get(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoiceService.Ensure(c.Request.Context(), projectID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

// MarkPaid handles POST /projects/:id/invoice/pay (client only)
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoiceService.MarkPaid(c.Request.Context(), projectID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("invoice paid",
		zap.Int64("invoice_id", inv.ID),
		zap.Int64("project_id", projectID))
	c.JSON(http.StatusOK, inv)
}
