package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/partdoc/kiosk/internal/docstore"
)

// DocumentResponse is the body of a successful document lookup.
type DocumentResponse struct {
	Found      bool   `json:"found"`
	PartNumber string `json:"partNumber"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
}

// GetDocument handles GET /api/documents/*part.
func (h *Handler) GetDocument(c *gin.Context) {
	part := strings.TrimPrefix(c.Param("part"), "/")
	name, err := h.docs.Find(part)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			h.log.Error("document lookup failed", "part", part, "error", err)
		}
		c.JSON(http.StatusNotFound, gin.H{"found": false, "message": "document not found"})
		return
	}
	c.JSON(http.StatusOK, DocumentResponse{
		Found:      true,
		PartNumber: part,
		Filename:   name,
		URL:        docstore.URL(name, h.now()),
	})
}

// ServeDocument handles GET /documents/*file.
func (h *Handler) ServeDocument(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("file"), "/")
	f, err := h.docs.Open(name)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			h.log.Error("document open failed", "file", name, "error", err)
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stat failed"})
		return
	}
	c.Header("Content-Type", "application/pdf")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}
