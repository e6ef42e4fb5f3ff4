package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/sheetcharts-be/internal/apperr"
	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/isdelr/sheetcharts-be/internal/services"
	"github.com/isdelr/sheetcharts-be/internal/sheets"
	"github.com/rs/zerolog/log"
)

// multipartOverhead allows for multipart framing around the file so the
// size limit applies to the file content.
const multipartOverhead = 1 << 20

// UploadHandler handles spreadsheet uploads and their visualizations.
type UploadHandler struct {
	uploads  services.UploadServiceProvider
	viz      services.VisualizationServiceProvider
	maxBytes int64
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploads services.UploadServiceProvider, viz services.VisualizationServiceProvider, maxBytes int64) *UploadHandler {
	return &UploadHandler{uploads: uploads, viz: viz, maxBytes: maxBytes}
}

type uploadView struct {
	UploadID       string                 `json:"uploadId,omitempty"`
	Filename       string                 `json:"filename"`
	Data           []models.Row           `json:"data"`
	Visualizations []models.Visualization `json:"visualizations"`
}

// Upload parses the multipart "file" field and stores its first sheet.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	owner, ok := callerID(r)
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMsg(w, http.StatusBadRequest, "File too large")
			return
		}
		writeMsg(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		writeMsg(w, http.StatusBadRequest, "File too large")
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename := filepath.Base(header.Filename)
	table, err := sheets.Normalize(filename, content)
	if err != nil {
		switch {
		case errors.Is(err, sheets.ErrNoFile):
			writeMsg(w, http.StatusBadRequest, "No file uploaded")
		case errors.Is(err, sheets.ErrUnparsable):
			log.Warn().Err(err).Str("filename", filename).Msg("Rejected unparsable upload")
			writeMsg(w, http.StatusBadRequest, "Unable to parse spreadsheet")
		default:
			writeError(w, r, err)
		}
		return
	}

	upload, err := h.uploads.CreateUpload(r.Context(), filename, table.Columns, table.Rows, owner)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.Info().Str("upload_id", upload.ID).Str("user_id", owner).Int("rows", len(upload.Data)).Msg("Spreadsheet uploaded")
	writeJSON(w, http.StatusOK, map[string]string{
		"msg":      "File uploaded successfully",
		"uploadId": upload.ID,
	})
}

// History lists the caller's uploads, newest first.
func (h *UploadHandler) History(w http.ResponseWriter, r *http.Request) {
	owner, _ := callerID(r)
	uploads, err := h.uploads.ListUploads(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploads)
}

// Latest returns the caller's most recent upload.
func (h *UploadHandler) Latest(w http.ResponseWriter, r *http.Request) {
	owner, _ := callerID(r)
	upload, err := h.uploads.LatestUpload(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadView{
		UploadID:       upload.ID,
		Filename:       upload.Filename,
		Data:           upload.Data,
		Visualizations: upload.Visualizations,
	})
}

// Get returns one of the caller's uploads.
func (h *UploadHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, _ := callerID(r)
	upload, err := h.uploads.GetUpload(r.Context(), chi.URLParam(r, "uploadId"), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadView{
		Filename:       upload.Filename,
		Data:           upload.Data,
		Visualizations: upload.Visualizations,
	})
}

// Visualize appends a chart to one of the caller's uploads.
func (h *UploadHandler) Visualize(w http.ResponseWriter, r *http.Request) {
	owner, _ := callerID(r)
	var in services.VisualizationInput
	// The body carries a base64 image, so it shares the upload limit.
	if err := decodeJSON(w, r, &in, h.maxBytes); err != nil {
		writeError(w, r, err)
		return
	}

	list, err := h.viz.Save(r.Context(), chi.URLParam(r, "uploadId"), owner, in)
	if err != nil {
		if apperr.KindOf(err) == apperr.InternalKind {
			log.Error().Err(err).Str("upload_id", chi.URLParam(r, "uploadId")).Msg("Failed to save visualization")
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Msg            string                 `json:"msg"`
		Visualizations []models.Visualization `json:"visualizations"`
	}{Msg: "Visualization saved", Visualizations: list})
}

// Chart renders a PNG of one of the caller's uploads on demand.
func (h *UploadHandler) Chart(w http.ResponseWriter, r *http.Request) {
	owner, _ := callerID(r)
	q := r.URL.Query()
	png, err := h.viz.RenderChart(r.Context(), chi.URLParam(r, "uploadId"), owner, q.Get("type"), q.Get("x"), q.Get("y"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
