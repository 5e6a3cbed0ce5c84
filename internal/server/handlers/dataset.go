// internal/server/handlers/dataset.go

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"legisdash/internal/domain/dataset"
	"legisdash/internal/logging"
	"legisdash/internal/service/dashboard"
)

// DatasetHandler handles dataset-related HTTP requests
type DatasetHandler struct {
	service        *dashboard.Service
	maxUploadBytes int64
	log            logging.Logger
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service *dashboard.Service, maxUploadBytes int64, log logging.Logger) *DatasetHandler {
	return &DatasetHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// errTooLarge is returned when an upload exceeds the configured size
var errTooLarge = errors.New("upload too large")

// Upload accepts a multipart form with a "file" field and an optional
// "engagement" field, or a raw text/csv body
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req dashboard.UploadRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxUploadBytes+1<<20)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			respondWithError(w, h.log, http.StatusBadRequest, "Invalid multipart form", err)
			return
		}

		data, filename, err := h.readPart(r, "file")
		if err != nil {
			h.respondWithUploadError(w, "file", err)
			return
		}
		req.Data = data
		req.Filename = filename

		engagement, _, err := h.readPart(r, "engagement")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			h.respondWithUploadError(w, "engagement", err)
			return
		}
		req.Engagement = engagement

	case "text/csv", "text/plain", "application/csv":
		data, err := io.ReadAll(io.LimitReader(r.Body, h.maxUploadBytes+1))
		if err != nil {
			respondWithError(w, h.log, http.StatusBadRequest, "Failed to read body", err)
			return
		}
		if int64(len(data)) > h.maxUploadBytes {
			h.respondWithUploadError(w, "body", errTooLarge)
			return
		}
		req.Data = data
		req.Filename = firstNonEmpty(r.URL.Query().Get("filename"), "upload.csv")

	default:
		respondWithError(w, h.log, http.StatusUnsupportedMediaType, "Expected multipart/form-data or text/csv", nil)
		return
	}

	// FormValue covers both the query string and multipart fields
	kind, ok := dataset.ParseKind(strings.TrimSpace(r.FormValue("kind")))
	if !ok {
		respondWithError(w, h.log, http.StatusBadRequest, "Invalid kind, expected legislators or posts", nil)
		return
	}
	req.Kind = kind
	req.Charset = strings.TrimSpace(r.FormValue("charset"))
	req.EnrichFromStore = r.FormValue("enrich") == "store"

	ds, err := h.service.Upload(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, uploadResponse{Dataset: ds, TopRange: h.service.Range(ds.Kind)})
}

type uploadResponse struct {
	*dashboard.Dataset
	TopRange dashboard.TopRange `json:"top_range"`
}

// ListDatasets returns every loaded dataset
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.service.List())
}

// GetDataset returns a dataset summary
func (h *DatasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, uploadResponse{Dataset: ds, TopRange: h.service.Range(ds.Kind)})
}

// GetRecords returns the filtered, formatted table
func (h *DatasetHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(chi.URLParam(r, "id"), parseFilter(r))
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// GetOptions returns the filter selector values
func (h *DatasetHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Options(chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, opts)
}

// GetTop returns the top-N records by a column
func (h *DatasetHandler) GetTop(w http.ResponseWriter, r *http.Request) {
	n, err := parseCount(r)
	if err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, "Invalid n", err)
		return
	}

	column := parseColumn(r.URL.Query().Get("column"))
	if column == "" {
		respondWithError(w, h.log, http.StatusBadRequest, "Missing column", nil)
		return
	}

	top, err := h.service.Top(chi.URLParam(r, "id"), parseFilter(r), column, n)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"column":  column,
		"count":   top.Len(),
		"records": top.Records(),
	})
}

// GetCharts returns the per-platform top-N chart documents
func (h *DatasetHandler) GetCharts(w http.ResponseWriter, r *http.Request) {
	n, err := parseCount(r)
	if err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, "Invalid n", err)
		return
	}

	panels, err := h.service.Charts(chi.URLParam(r, "id"), parseFilter(r), n)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, panels)
}

// Export downloads the filtered table as CSV
func (h *DatasetHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	filename, err := h.service.Export(chi.URLParam(r, "id"), parseFilter(r), &buf)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// RefreshFollowers re-reads follower counts from the X API into a new dataset
func (h *DatasetHandler) RefreshFollowers(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.RefreshFollowers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, uploadResponse{Dataset: ds, TopRange: h.service.Range(ds.Kind)})
}

func (h *DatasetHandler) readPart(r *http.Request, name string) ([]byte, string, error) {
	file, header, err := r.FormFile(name)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, "", errTooLarge
	}
	return data, header.Filename, nil
}

func (h *DatasetHandler) respondWithUploadError(w http.ResponseWriter, part string, err error) {
	switch {
	case errors.Is(err, http.ErrMissingFile):
		respondWithError(w, h.log, http.StatusBadRequest, "Missing "+part+" upload", nil)
	case errors.Is(err, errTooLarge):
		respondWithError(w, h.log, http.StatusRequestEntityTooLarge, "Upload exceeds the size limit", nil)
	default:
		respondWithError(w, h.log, http.StatusBadRequest, "Failed to read "+part+" upload", err)
	}
}

// anyValues are the selector sentinels meaning "no constraint"
var anyValues = map[string]bool{
	"any":   true,
	"todas": true,
	"todos": true,
}

// parseFilter reads filter constraints from the query string. Portuguese and
// English parameter names are both accepted.
func parseFilter(r *http.Request) dataset.Filter {
	q := r.URL.Query()
	pick := func(keys ...string) string {
		for _, k := range keys {
			v := strings.TrimSpace(q.Get(k))
			if v == "" {
				continue
			}
			if anyValues[strings.ToLower(v)] {
				return ""
			}
			return v
		}
		return ""
	}

	return dataset.Filter{
		Region:  pick("uf", "region"),
		Party:   pick("partido", "party"),
		Name:    strings.TrimSpace(firstNonEmpty(q.Get("nome"), q.Get("name"))),
		Network: pick("rede", "network"),
	}
}

var columnAliases = map[string]dataset.Column{
	"seguidores_twitter":   dataset.ColumnFollowersTwitter,
	"seguidores_x":         dataset.ColumnFollowersTwitter,
	"curtidas_instagram":   dataset.ColumnLikesInstagram,
	"visualizacoes_tiktok": dataset.ColumnViewsTiktok,
	"engajamento_total":    dataset.ColumnTotalEngagement,
}

// parseColumn resolves a column parameter; unknown names pass through so the
// ranking engine can reject them
func parseColumn(s string) dataset.Column {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := columnAliases[s]; ok {
		return c
	}
	return dataset.Column(s)
}

// parseCount reads the top-N count; absent means the default
func parseCount(r *http.Request) (int, error) {
	s := firstNonEmpty(r.URL.Query().Get("n"), r.URL.Query().Get("top"))
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
