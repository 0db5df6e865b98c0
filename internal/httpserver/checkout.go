package httpserver

import (
	"net/http"

	"beatsphere/internal/domain"
	"beatsphere/internal/service/checkout"
	"github.com/gin-gonic/gin"
)

type checkoutHandler struct {
	checkouts CheckoutService
}

func (h *checkoutHandler) checkout(c *gin.Context) {
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	conf, err := h.checkouts.Checkout(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conf)
}

func (h *checkoutHandler) confirmation(c *gin.Context) {
	conf, ok := h.checkouts.LastConfirmation()
	if !ok {
		writeError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, conf)
}
