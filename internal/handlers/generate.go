package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qrforge/qrforge/internal/params"
	"github.com/qrforge/qrforge/internal/qrerrors"
)

const previewLimit = 120

// duplicateEntry mirrors one secondary artifact in the generate response.
type duplicateEntry struct {
	ID          string `json:"id"`
	DownloadURL string `json:"download_url"`
	DataURI     string `json:"data_uri"`
}

// Generate handles POST /api/generate for both multipart form data (with an
// optional logo upload) and JSON bodies.
func (h *Handler) Generate(c *gin.Context) {
	var (
		fields   params.Fields
		logoPath string
		err      error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fields, logoPath, err = h.decodeForm(c)
	} else {
		fields, err = decodeJSON(c)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	req, err := params.Parse(fields)
	if err != nil {
		h.respondError(c, err)
		return
	}
	req.LogoPath = logoPath

	res, err := h.pipe.Render(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	duplicates := make([]duplicateEntry, 0, len(res.Duplicates))
	for _, d := range res.Duplicates {
		duplicates = append(duplicates, duplicateEntry{
			ID:          d.ID,
			DownloadURL: downloadURL(d.ID),
			DataURI:     d.DataURI,
		})
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":              res.ID,
		"download_url":    downloadURL(res.ID),
		"data_uri":        res.DataURI,
		"is_url":          res.IsURL,
		"content_preview": preview(req.Content),
		"duplicates":      duplicates,
		"total_generated": 1 + len(duplicates),
	})
}

// decodeForm reads a multipart request: scalar fields from the form, the
// optional logo staged through the store.
func (h *Handler) decodeForm(c *gin.Context) (params.Fields, string, error) {
	fields := params.Fields{}
	for _, key := range fieldKeys {
		if v, ok := c.GetPostForm(key); ok {
			fields[key] = v
		}
	}

	file, err := c.FormFile("logo")
	if err != nil || file == nil || file.Filename == "" {
		return fields, "", nil
	}
	src, err := file.Open()
	if err != nil {
		return nil, "", qrerrors.Wrap(qrerrors.CodeInvalidUpload, err, "open logo upload")
	}
	defer src.Close()

	staged, err := h.store.StageUpload(file.Filename, src)
	if err != nil {
		return nil, "", err
	}
	return fields, staged, nil
}

// decodeJSON reads a JSON body into the same flat field shape the form
// decoder produces. Values keep the numeric leniency policy: a non-string
// scalar is flattened to its string form and clamped downstream.
func decodeJSON(c *gin.Context) (params.Fields, error) {
	var body map[string]any
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, qrerrors.Wrap(qrerrors.CodeInvalidInput, err, "invalid JSON body")
	}

	fields := params.Fields{}
	for _, key := range fieldKeys {
		if v, ok := body[key]; ok {
			fields[key] = fieldString(v)
		}
	}
	return fields, nil
}

var fieldKeys = []string{
	params.FieldContent,
	params.FieldErrorCorrection,
	params.FieldSizePx,
	params.FieldBoxSize,
	params.FieldMargin,
	params.FieldFgColor,
	params.FieldBgColor,
	params.FieldRounded,
	params.FieldLogoSize,
	params.FieldDuplicateCount,
	params.FieldAutoDuplicate,
}

func fieldString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return ""
	}
}

func preview(content string) string {
	if len(content) <= previewLimit {
		return content
	}
	return content[:previewLimit] + "..."
}
