package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func downloadURL(id string) string { return "/download/" + id }

// Download serves a generated artifact as a PNG attachment. Missing,
// malformed and already-swept identifiers all answer 404 alike.
func (h *Handler) Download(c *gin.Context) {
	id := c.Param("id")
	data, err := h.store.Retrieve(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+id+`.png"`)
	c.Data(http.StatusOK, "image/png", data)
}
