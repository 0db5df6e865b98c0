package httpserver

import (
	"io"
	"net/http"

	"beatsphere/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type cartHandler struct {
	cart CartStore
}

type cartView struct {
	Items    []domain.LineItem `json:"items"`
	Count    int               `json:"count"`
	Subtotal decimal.Decimal   `json:"subtotal"`
	Tax      decimal.Decimal   `json:"tax"`
	Total    decimal.Decimal   `json:"total"`
}

func newCartView(items []domain.LineItem) cartView {
	if items == nil {
		items = []domain.LineItem{}
	}
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	subtotal := domain.Total(items)
	return cartView{
		Items:    items,
		Count:    count,
		Subtotal: subtotal,
		Tax:      domain.Tax(subtotal),
		Total:    domain.TaxedTotal(subtotal),
	}
}

type quantityRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

func (h *cartHandler) get(c *gin.Context) {
	c.JSON(http.StatusOK, newCartView(h.cart.Items()))
}

func (h *cartHandler) add(c *gin.Context) {
	var p domain.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.cart.AddItem(p); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(h.cart.Items()))
}

func (h *cartHandler) updateQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.cart.UpdateQuantity(pathID(c), *req.Delta); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(h.cart.Items()))
}

func (h *cartHandler) remove(c *gin.Context) {
	if err := h.cart.RemoveItem(pathID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(h.cart.Items()))
}

func (h *cartHandler) clear(c *gin.Context) {
	h.cart.Clear()
	c.JSON(http.StatusOK, newCartView(nil))
}

// events streams the cart as server-sent events: the current state first,
// then one event per change until the client goes away.
func (h *cartHandler) events(c *gin.Context) {
	updates := make(chan []domain.LineItem, 1)
	unsubscribe := h.cart.Subscribe(func(items []domain.LineItem) {
		offerLatest(updates, items)
	})
	defer unsubscribe()

	c.SSEvent("cart", newCartView(h.cart.Items()))
	c.Writer.Flush()
	c.Stream(func(io.Writer) bool {
		select {
		case items := <-updates:
			c.SSEvent("cart", newCartView(items))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
