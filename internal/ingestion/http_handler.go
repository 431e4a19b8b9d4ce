package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/memberimport/internal/auth"
	"github.com/rpattn/memberimport/internal/repository"
	"github.com/rpattn/memberimport/internal/session"
	"github.com/rpattn/memberimport/internal/spreadsheet"
	"github.com/rpattn/memberimport/pkg/mapping"
	"github.com/rpattn/memberimport/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const defaultMaxUpload = 32 << 20

// Handler exposes import sessions over HTTP.
type Handler struct {
	service   *Service
	sessions  session.Store
	maxUpload int64
}

// NewHTTPHandler wraps the service and a session store.
func NewHTTPHandler(service *Service, sessions session.Store, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUpload
	}
	return &Handler{service: service, sessions: sessions, maxUpload: maxUploadBytes}
}

// RegisterRoutes mounts the import endpoints under /api/imports.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	r := router.PathPrefix("/api/imports").Subrouter()
	r.HandleFunc("", h.create).Methods(http.MethodPost)
	r.HandleFunc("/logs", h.logs).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.delete).Methods(http.MethodDelete)
	r.HandleFunc("/{id}/mapping", h.updateMapping).Methods(http.MethodPut)
	r.HandleFunc("/{id}/test", h.test).Methods(http.MethodPost)
	r.HandleFunc("/{id}/commit", h.commit).Methods(http.MethodPost)
}

// SessionView is the client facing state of an import session.
type SessionView struct {
	ID             uuid.UUID             `json:"id"`
	OrganizationID uuid.UUID             `json:"organizationId"`
	Catalog        string                `json:"catalog"`
	FileName       string                `json:"fileName"`
	SheetName      string                `json:"sheetName"`
	SheetNames     []string              `json:"sheetNames"`
	Headers        []string              `json:"headers"`
	HeaderRowIndex int                   `json:"headerRowIndex"`
	HeaderRowCount int                   `json:"headerRowCount"`
	TotalRows      int                   `json:"totalRows"`
	Mapping        mapping.Mapping       `json:"mapping"`
	Fields         []mapping.MappedField `json:"fields"`
	Missing        []string              `json:"missing"`
	Rows           []map[string]string   `json:"rows"`
}

func (h *Handler) view(sess *session.Session) SessionView {
	v := SessionView{
		ID:             sess.ID,
		OrganizationID: sess.OrganizationID,
		Catalog:        sess.Catalog,
		FileName:       sess.FileName,
		SheetName:      sess.SheetName,
		SheetNames:     sess.SheetNames,
		Headers:        sess.Headers,
		HeaderRowIndex: sess.HeaderRowIndex,
		HeaderRowCount: sess.HeaderRowCount,
		TotalRows:      len(sess.Values),
		Mapping:        sess.Mapping,
		Rows:           []map[string]string{},
	}
	if catalog, ok := mapping.LookupCatalog(sess.Catalog); ok {
		v.Fields = sess.Mapping.Describe(catalog)
		v.Missing = missingLabels(sess.Mapping, catalog)
	}
	for i, row := range sess.Rows() {
		if i >= h.service.previewRows {
			break
		}
		v.Rows = append(v.Rows, row.Map())
	}
	return v
}

type createResponse struct {
	SessionView
	HeaderCandidates []spreadsheet.HeaderCandidate `json:"headerCandidates"`
	AutoDetected     bool                          `json:"autoDetected"`
	Conflicts        []Conflict                    `json:"conflicts"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid form data: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file required: %w", err))
		return
	}
	defer file.Close()

	orgID, err := auth.ResolveOrganizationID(r.Context(), r.FormValue("organizationId"))
	if err != nil {
		writeError(w, scopeStatus(err), err)
		return
	}

	headerRow, err := optionalInt(r.FormValue("headerRow"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid headerRow: %w", err))
		return
	}
	headerRowCount, err := optionalInt(r.FormValue("headerRowCount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid headerRowCount: %w", err))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read file: %w", err))
		return
	}

	catalog := strings.TrimSpace(r.FormValue("catalog"))
	if catalog == "" {
		catalog = mapping.CatalogSimple
	}

	preview, err := h.service.Preview(r.Context(), PreviewRequest{
		OrganizationID: orgID,
		Catalog:        catalog,
		FileName:       header.Filename,
		SheetName:      strings.TrimSpace(r.FormValue("sheetName")),
		HeaderRow:      headerRow,
		HeaderRowCount: headerRowCount,
		Data:           bytes.NewReader(data),
	})
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	sess := session.New(orgID, preview.Catalog, preview.Sheet, preview.Mapping)
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{
		SessionView:      h.view(sess),
		HeaderCandidates: preview.Sheet.Candidates,
		AutoDetected:     preview.Sheet.AutoDetected,
		Conflicts:        preview.Conflicts,
	})
}

func (h *Handler) load(ctx context.Context, w http.ResponseWriter, rawID string) (*session.Session, bool) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid import id: %w", err))
		return nil, false
	}
	sess, err := h.sessions.Get(ctx, id)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return nil, false
	}
	if err := auth.EnforceOrganizationScope(ctx, sess.OrganizationID); err != nil {
		// Foreign sessions are reported as missing.
		writeError(w, http.StatusNotFound, session.ErrSessionNotFound)
		return nil, false
	}
	return sess, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(r.Context(), w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.view(sess))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(r.Context(), w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if err := h.sessions.Delete(r.Context(), sess.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mappingUpdate struct {
	Field  string  `json:"field"`
	Header *string `json:"header"`
}

func (h *Handler) updateMapping(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(r.Context(), w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var body mappingUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	catalog, err := lookupCatalog(sess.Catalog)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, ok := catalog.Field(body.Field); !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown field %q for catalog %s", body.Field, catalog.Name()))
		return
	}

	if body.Header == nil || !mapping.Eligible(*body.Header) {
		sess.Mapping.Unassign(body.Field)
	} else {
		if !containsHeader(sess.Headers, *body.Header) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("unknown header %q", *body.Header))
			return
		}
		sess.Mapping.Assign(body.Field, *body.Header)
	}

	if err := h.sessions.Save(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(sess))
}

func (h *Handler) test(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(r.Context(), w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	summary, err := h.service.Test(r.Context(), RequestFromSession(sess))
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type commitOptions struct {
	TrackHistory               bool      `json:"trackHistory"`
	AllowMatchingWithSubfields bool      `json:"allowMatchingWithSubfields"`
	GroupID                    uuid.UUID `json:"groupId"`
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(r.Context(), w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	var opts commitOptions
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
			return
		}
	}

	req := RequestFromSession(sess)
	req.TrackHistory = opts.TrackHistory
	req.AllowMatchingWithSubfields = opts.AllowMatchingWithSubfields
	req.GroupID = opts.GroupID

	summary, err := h.service.Import(r.Context(), req)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	if err := h.sessions.Delete(r.Context(), sess.ID); err != nil {
		h.service.log.WithError(err).Warn("failed to drop committed import session")
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) logs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	orgID, err := auth.ResolveOrganizationID(r.Context(), query.Get("organizationId"))
	if err != nil {
		writeError(w, scopeStatus(err), err)
		return
	}
	limit, err := optionalInt(query.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %w", err))
		return
	}
	offset, err := optionalInt(query.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid offset: %w", err))
		return
	}

	entries, err := h.service.Logs(r.Context(), orgID, query.Get("fileName"), limit, offset)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func containsHeader(headers []string, header string) bool {
	for _, h := range headers {
		if h == header {
			return true
		}
	}
	return false
}

func optionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func scopeStatus(err error) int {
	if errors.Is(err, auth.ErrScopeMismatch) {
		return http.StatusForbidden
	}
	return http.StatusBadRequest
}

func errorStatus(err error) int {
	var mappingErr *validator.MappingError
	switch {
	case errors.As(err, &mappingErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, spreadsheet.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, spreadsheet.ErrTooManyCells):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, auth.ErrScopeMismatch):
		return http.StatusForbidden
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusBadRequest
}

type errorBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := errorBody{Error: err.Error()}
	var mappingErr *validator.MappingError
	if errors.As(err, &mappingErr) {
		body.Fields = mappingErr.Fields
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
