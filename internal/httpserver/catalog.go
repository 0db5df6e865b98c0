package httpserver

import (
	"net/http"

	"beatsphere/internal/service/catalog"
	"github.com/gin-gonic/gin"
)

type catalogHandler struct {
	catalog   CatalogBrowser
	discovery DiscoveryFeed
}

func (h *catalogHandler) albums(c *gin.Context) {
	var f catalog.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	listing, err := h.catalog.Apply(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *catalogHandler) more(c *gin.Context) {
	listing, err := h.catalog.LoadMore(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *catalogHandler) album(c *gin.Context) {
	album, err := h.catalog.Album(c.Request.Context(), pathID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, album)
}

func (h *catalogHandler) artist(c *gin.Context) {
	page, err := h.discovery.Artist(c.Request.Context(), pathID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *catalogHandler) recommendations(c *gin.Context) {
	c.JSON(http.StatusOK, h.discovery.Home(c.Request.Context()))
}
