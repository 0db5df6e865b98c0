package httpserver

import (
	"net/http"

	"beatsphere/internal/service/radio"
	"github.com/gin-gonic/gin"
)

type trackHandler struct {
	likes LikeTracker
	radio RadioPlaylist
}

func (h *trackHandler) like(c *gin.Context) {
	id := pathID(c)
	if err := h.likes.Like(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trackId": id, "liked": true})
}

func (h *trackHandler) liked(c *gin.Context) {
	id := pathID(c)
	c.JSON(http.StatusOK, gin.H{"trackId": id, "liked": h.likes.Liked(id)})
}

func (h *trackHandler) play(c *gin.Context) {
	h.likes.Play(c.Request.Context(), pathID(c))
	c.Status(http.StatusAccepted)
}

type radioView struct {
	Current *radio.Entry  `json:"current"`
	Tracks  []radio.Entry `json:"tracks"`
}

func (h *trackHandler) playlist(c *gin.Context) {
	view := radioView{Tracks: h.radio.Filter(c.Query("search"), c.DefaultQuery("genre", radio.AllGenres))}
	if cur, ok := h.radio.Current(); ok {
		view.Current = &cur
	}
	c.JSON(http.StatusOK, view)
}

func (h *trackHandler) reload(c *gin.Context) {
	if err := h.radio.Load(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	h.playlist(c)
}

func (h *trackHandler) selectTrack(c *gin.Context) {
	h.moved(c)(h.radio.Select(c.Request.Context(), pathID(c)))
}

func (h *trackHandler) next(c *gin.Context) {
	h.moved(c)(h.radio.Next(c.Request.Context()))
}

func (h *trackHandler) prev(c *gin.Context) {
	h.moved(c)(h.radio.Prev(c.Request.Context()))
}

func (h *trackHandler) moved(c *gin.Context) func(radio.Entry, error) {
	return func(e radio.Entry, err error) {
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"current": e, "liked": h.likes.Liked(e.ID)})
	}
}
