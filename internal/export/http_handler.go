package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/memberimport/internal/auth"
	"github.com/rpattn/memberimport/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// HTTPHandler serves member exports.
type HTTPHandler struct {
	service *Service
}

// NewHTTPHandler constructs an HTTP handler for the export service.
func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// RegisterRoutes mounts the export endpoints under /api/members/export.
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	r := router.PathPrefix("/api/members/export").Subrouter()
	r.HandleFunc("", h.download).Methods(http.MethodGet)
	r.HandleFunc("/count", h.count).Methods(http.MethodGet)
	r.HandleFunc("/preview", h.preview).Methods(http.MethodGet)
	r.HandleFunc("/columns", h.columns).Methods(http.MethodGet)
}

func (h *HTTPHandler) download(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if _, err := ResolveColumns(req.Fields); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	name := fmt.Sprintf("members-%s.%s", time.Now().UTC().Format("20060102-150405"), req.Format)
	w.Header().Set("Content-Type", req.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := h.service.Write(r.Context(), w, req); err != nil {
		// headers are gone once the body started; the client sees a truncated file
		h.service.log.WithError(err).Warn("member export aborted")
	}
}

func (h *HTTPHandler) count(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	total, err := h.service.Count(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total": total})
}

func (h *HTTPHandler) preview(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	q := r.URL.Query()
	page, err := optionalInt(q.Get("page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid page: %w", err))
		return
	}
	pageSize, err := optionalInt(q.Get("pageSize"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid pageSize: %w", err))
		return
	}
	result, err := h.service.Preview(r.Context(), req, page, pageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) columns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Columns())
}

func parseRequest(r *http.Request) (Request, error) {
	q := r.URL.Query()
	orgID, err := auth.ResolveOrganizationID(r.Context(), q.Get("organizationId"))
	if err != nil {
		return Request{}, err
	}
	filter, err := parseFilter(q)
	if err != nil {
		return Request{}, err
	}
	format, err := ParseFormat(q.Get("format"))
	if err != nil {
		return Request{}, err
	}

	includeHeader := true
	if raw := q.Get("includeHeader"); raw != "" {
		includeHeader, err = strconv.ParseBool(raw)
		if err != nil {
			return Request{}, fmt.Errorf("invalid includeHeader: %w", err)
		}
	}

	fields := splitList(q.Get("fields"))
	if len(fields) == 0 {
		for _, c := range columns {
			fields = append(fields, c.Key)
		}
	}

	sort := domain.MemberSort{
		Field:     domain.MemberSortField(q.Get("sort")),
		Direction: domain.SortDirection(strings.ToLower(q.Get("direction"))),
	}

	return Request{
		OrganizationID: orgID,
		Filter:         filter,
		Sort:           sort,
		Fields:         fields,
		IncludeHeader:  includeHeader,
		Format:         format,
	}, nil
}

func parseFilter(q url.Values) (domain.MemberFilter, error) {
	filter := domain.MemberFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Active: domain.ActiveFilterAll,
	}
	switch raw := domain.ActiveFilter(strings.ToLower(q.Get("active"))); raw {
	case "", domain.ActiveFilterAll:
	case domain.ActiveFilterActive, domain.ActiveFilterInactive:
		filter.Active = raw
	default:
		return filter, fmt.Errorf("invalid active filter %q", raw)
	}

	var err error
	if filter.DepartmentIDs, err = parseIDs(q.Get("departments")); err != nil {
		return filter, fmt.Errorf("invalid departments: %w", err)
	}
	if filter.SelectedIDs, err = parseIDs(q.Get("selected")); err != nil {
		return filter, fmt.Errorf("invalid selected: %w", err)
	}
	for _, g := range splitList(q.Get("genders")) {
		gender := domain.Gender(strings.ToLower(g))
		if gender != domain.GenderMale && gender != domain.GenderFemale {
			return filter, fmt.Errorf("invalid gender %q", g)
		}
		filter.Genders = append(filter.Genders, gender)
	}
	filter.Religions = splitList(q.Get("religions"))
	return filter, nil
}

func parseIDs(raw string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range splitList(raw) {
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func statusFor(err error) int {
	if errors.Is(err, auth.ErrScopeMismatch) {
		return http.StatusForbidden
	}
	return http.StatusBadRequest
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
