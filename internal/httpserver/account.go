package httpserver

import (
	"net/http"

	"beatsphere/internal/domain"
	"github.com/gin-gonic/gin"
)

type accountHandler struct {
	accounts AccountService
}

func (h *accountHandler) profile(c *gin.Context) {
	profile, err := h.accounts.Profile(c.Request.Context(), currentSession(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *accountHandler) updateProfile(c *gin.Context) {
	var in domain.Profile
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	userID := currentSession(c).UserID
	in.UserID = userID
	profile, err := h.accounts.UpdateProfile(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *accountHandler) paymentMethods(c *gin.Context) {
	methods, err := h.accounts.PaymentMethods(c.Request.Context(), currentSession(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, methods)
}

type cardRequest struct {
	Holder   string `json:"name" binding:"required"`
	Number   string `json:"numC" binding:"required,numeric"`
	Expiry   string `json:"cadC" binding:"required"`
	CVV      string `json:"cvv" binding:"required,numeric"`
	Provider string `json:"provider" binding:"required"`
}

func (h *accountHandler) createPaymentMethod(c *gin.Context) {
	var req cardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	pm, err := h.accounts.CreatePaymentMethod(c.Request.Context(), currentSession(c).UserID, domain.Card{
		Holder:   req.Holder,
		Number:   req.Number,
		Expiry:   req.Expiry,
		CVV:      req.CVV,
		Provider: req.Provider,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pm)
}

func (h *accountHandler) deletePaymentMethod(c *gin.Context) {
	id, err := domain.IDOf(pathID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.accounts.DeletePaymentMethod(c.Request.Context(), currentSession(c).UserID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// subscribe follows an artist.
func (h *accountHandler) subscribe(c *gin.Context) {
	id, err := domain.IDOf(pathID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.accounts.Subscribe(c.Request.Context(), currentSession(c).UserID, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artistId": id, "subscribed": true})
}
