// Package ingestion runs member imports: preview with auto mapping, test runs
// and committed imports into the member repository.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rpattn/memberimport/internal/domain"
	"github.com/rpattn/memberimport/internal/memberloader"
	"github.com/rpattn/memberimport/internal/metrics"
	"github.com/rpattn/memberimport/internal/repository"
	"github.com/rpattn/memberimport/internal/session"
	"github.com/rpattn/memberimport/internal/spreadsheet"
	"github.com/rpattn/memberimport/pkg/mapping"
	"github.com/rpattn/memberimport/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	ModeTest   = "test"
	ModeImport = "import"

	defaultPreviewRows = 20
	defaultMaxErrors   = 1000
)

var (
	// ErrUnknownCatalog is returned for catalog names other than simple and biodata.
	ErrUnknownCatalog = errors.New("unknown catalog")
	// ErrOrganizationRequired is returned when an import has no organization.
	ErrOrganizationRequired = errors.New("organization id is required")
	// ErrGroupNotFound is returned when the group chosen for an import is not
	// one of the organization's departments.
	ErrGroupNotFound = errors.New("group not found")
)

// Service imports spreadsheet rows as organization members.
type Service struct {
	members       repository.MemberRepository
	departments   repository.DepartmentRepository
	organizations repository.OrganizationRepository
	logRepo       repository.ImportLogRepository
	metrics       *metrics.ImportMetrics
	log           logrus.FieldLogger
	matcherOpts   []mapping.Option
	previewRows   int
	maxErrors     int
	minNIKLength  int
}

// Option configures the service.
type Option func(*Service)

// WithMetrics records row counts and run durations.
func WithMetrics(m *metrics.ImportMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger overrides the default logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMatcherOptions passes stoplist and length settings to every matcher.
func WithMatcherOptions(opts ...mapping.Option) Option {
	return func(s *Service) { s.matcherOpts = append(s.matcherOpts, opts...) }
}

// WithPreviewRows caps the rows returned by Preview.
func WithPreviewRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.previewRows = n
		}
	}
}

// WithMaxErrors caps the errors and warnings listed in a summary. Counts are
// never capped.
func WithMaxErrors(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxErrors = n
		}
	}
}

// WithMinNIKLength sets the minimum length of an identity natural key. Zero
// disables the check.
func WithMinNIKLength(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.minNIKLength = n
		}
	}
}

// NewService creates a new import service.
func NewService(
	members repository.MemberRepository,
	departments repository.DepartmentRepository,
	organizations repository.OrganizationRepository,
	logRepo repository.ImportLogRepository,
	opts ...Option,
) *Service {
	s := &Service{
		members:       members,
		departments:   departments,
		organizations: organizations,
		logRepo:       logRepo,
		log:           logrus.StandardLogger(),
		previewRows:   defaultPreviewRows,
		maxErrors:     defaultMaxErrors,
		minNIKLength:  validator.DefaultMinIdentityLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PreviewRequest describes an upload to parse and auto-map.
type PreviewRequest struct {
	OrganizationID uuid.UUID
	Catalog        string
	FileName       string
	SheetName      string
	HeaderRow      int
	HeaderRowCount int
	Data           io.Reader
}

// Conflict is a field the duplicate guard unmapped because its header was
// already claimed by Owner.
type Conflict struct {
	Field  string `json:"field"`
	Header string `json:"header"`
	Owner  string `json:"owner"`
}

// PreviewResult is the parsed sheet with its auto mapping.
type PreviewResult struct {
	Sheet     *spreadsheet.Sheet    `json:"sheet"`
	Catalog   string                `json:"catalog"`
	Mapping   mapping.Mapping       `json:"mapping"`
	Fields    []mapping.MappedField `json:"fields"`
	Missing   []string              `json:"missing"`
	Rows      []map[string]string   `json:"rows"`
	Conflicts []Conflict            `json:"conflicts"`
}

// Request is a test or import run over already parsed rows. A non-nil GroupID
// assigns every imported member to that department and takes priority over
// the sheet's department column.
type Request struct {
	OrganizationID             uuid.UUID
	Catalog                    string
	FileName                   string
	Headers                    []string
	Rows                       []mapping.Row
	FirstRowNumber             int
	Mapping                    mapping.Mapping
	TrackHistory               bool
	AllowMatchingWithSubfields bool
	GroupID                    uuid.UUID
}

// RequestFromSession builds a run over a stored import session.
func RequestFromSession(sess *session.Session) Request {
	return Request{
		OrganizationID: sess.OrganizationID,
		Catalog:        sess.Catalog,
		FileName:       sess.FileName,
		Headers:        sess.Headers,
		Rows:           sess.Rows(),
		FirstRowNumber: sess.FirstDataRow(),
		Mapping:        sess.Mapping.Clone(),
	}
}

// RequestFromSheet builds a run over a freshly parsed sheet.
func RequestFromSheet(organizationID uuid.UUID, catalog string, sheet *spreadsheet.Sheet, m mapping.Mapping) Request {
	return Request{
		OrganizationID: organizationID,
		Catalog:        catalog,
		FileName:       sheet.FileName,
		Headers:        sheet.Headers,
		Rows:           sheet.Rows,
		FirstRowNumber: sheet.FirstDataRow(),
		Mapping:        m.Clone(),
	}
}

// TestSummary is the dry-run outcome. Accepted rows are split into members
// that would be created and members that would be updated.
type TestSummary struct {
	validator.Summary
	WouldCreate int `json:"wouldCreate"`
	WouldUpdate int `json:"wouldUpdate"`
}

// ImportSummary is the committed outcome.
type ImportSummary struct {
	validator.Summary
	Created int `json:"created"`
	Updated int `json:"updated"`
}

func lookupCatalog(name string) (*mapping.Catalog, error) {
	catalog, ok := mapping.LookupCatalog(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		return nil, fmt.Errorf("%w %q (expected one of %s)", ErrUnknownCatalog, name, strings.Join(mapping.CatalogNames(), ", "))
	}
	return catalog, nil
}

// Preview parses the upload, detects the header row and auto-maps columns.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (PreviewResult, error) {
	catalog, err := lookupCatalog(req.Catalog)
	if err != nil {
		return PreviewResult{}, err
	}
	if req.Data == nil {
		return PreviewResult{}, errors.New("data reader is required")
	}

	result := PreviewResult{Catalog: catalog.Name(), Conflicts: []Conflict{}}
	entry := s.log.WithFields(logrus.Fields{"catalog": catalog.Name(), "file": req.FileName})
	opts := append(append([]mapping.Option(nil), s.matcherOpts...), mapping.WithConflictHook(func(field, header, owner string) {
		entry.WithFields(logrus.Fields{"field": field, "header": header, "owner": owner}).Warn("auto mapping conflict, field left unmapped")
		result.Conflicts = append(result.Conflicts, Conflict{Field: field, Header: header, Owner: owner})
	}))
	matcher := mapping.NewMatcher(opts...)

	sheet, err := spreadsheet.ReadAll(req.FileName, req.Data, spreadsheet.Options{
		SheetName:      req.SheetName,
		HeaderRow:      req.HeaderRow,
		HeaderRowCount: req.HeaderRowCount,
		Catalog:        catalog,
		Matcher:        matcher,
	})
	if err != nil {
		return PreviewResult{}, err
	}

	// Header detection may already have run the matcher; only conflicts of the
	// final mapping are reported.
	result.Conflicts = result.Conflicts[:0]
	result.Sheet = sheet
	result.Mapping = matcher.AutoMap(sheet.Headers, catalog)
	result.Fields = result.Mapping.Describe(catalog)
	result.Missing = missingLabels(result.Mapping, catalog)
	for _, row := range sheet.Preview(s.previewRows) {
		result.Rows = append(result.Rows, row.Map())
	}

	entry.WithFields(logrus.Fields{
		"header_row": sheet.HeaderRowIndex,
		"rows":       sheet.TotalRows,
		"mapped":     len(result.Mapping),
	}).Info("import preview ready")
	return result, nil
}

func missingLabels(m mapping.Mapping, catalog *mapping.Catalog) []string {
	labels := []string{}
	for _, field := range m.Missing(catalog) {
		labels = append(labels, field.Label)
	}
	return labels
}

func (s *Service) validate(req Request) (*mapping.Catalog, validator.Result, error) {
	catalog, err := lookupCatalog(req.Catalog)
	if err != nil {
		return nil, validator.Result{}, err
	}
	if req.Mapping == nil {
		req.Mapping = mapping.Mapping{}
	}
	if err := req.Mapping.Validate(catalog, req.Headers); err != nil {
		return nil, validator.Result{}, err
	}
	firstRow := req.FirstRowNumber
	if firstRow <= 0 {
		firstRow = 2
	}
	result, err := validator.NewRowValidator(catalog, validator.WithMinIdentityLength(s.minNIKLength)).Validate(req.Mapping, req.Rows, firstRow)
	if err != nil {
		return nil, validator.Result{}, err
	}
	return catalog, result, nil
}

// Test validates every row without writing anything. When an organization is
// given, accepted rows are checked against existing members.
func (s *Service) Test(ctx context.Context, req Request) (TestSummary, error) {
	started := time.Now()
	catalog, result, err := s.validate(req)
	if err != nil {
		return TestSummary{}, err
	}

	summary := TestSummary{Summary: result.Summary}
	if req.OrganizationID != uuid.Nil && s.members != nil && len(result.Accepted) > 0 {
		if err := s.classify(ctx, req.OrganizationID, catalog, result.Accepted, &summary); err != nil {
			return TestSummary{}, err
		}
	}

	s.metrics.AddRows(catalog.Name(), ModeTest, metrics.OutcomeAccepted, summary.Success)
	s.metrics.AddRows(catalog.Name(), ModeTest, metrics.OutcomeRejected, summary.Failed)
	s.metrics.ObserveRun(catalog.Name(), ModeTest, started)

	s.log.WithFields(logrus.Fields{
		"catalog": catalog.Name(),
		"file":    req.FileName,
		"success": summary.Success,
		"failed":  summary.Failed,
	}).Info("import test finished")

	summary.Summary = summary.Summary.Capped(s.maxErrors)
	return summary, nil
}

func (s *Service) classify(ctx context.Context, organizationID uuid.UUID, catalog *mapping.Catalog, accepted []validator.Record, summary *TestSummary) error {
	naturalKey := catalog.NaturalKey()
	values := make([]string, 0, len(accepted))
	for _, record := range accepted {
		values = append(values, record.Value(naturalKey))
	}

	existing, err := s.loader(ctx).LoadMany(ctx, organizationID, naturalKey, values)
	if err != nil {
		return fmt.Errorf("failed to look up existing members: %w", err)
	}

	seen := make(map[string]struct{}, len(values))
	for i, value := range values {
		_, repeated := seen[value]
		seen[value] = struct{}{}
		if existing[i] != nil || repeated {
			summary.WouldUpdate++
			continue
		}
		summary.WouldCreate++
	}
	return nil
}

func (s *Service) loader(ctx context.Context) *memberloader.MemberLoader {
	if loader := memberloader.FromContext(ctx); loader != nil {
		return loader
	}
	return memberloader.NewMemberLoader(s.members)
}

// existingMembers indexes the stored members behind the accepted rows by
// natural key.
func (s *Service) existingMembers(ctx context.Context, organizationID uuid.UUID, naturalKey string, accepted []validator.Record) (map[string]*domain.Member, error) {
	values := make([]string, 0, len(accepted))
	for _, record := range accepted {
		values = append(values, record.Value(naturalKey))
	}
	found, err := s.loader(ctx).LoadMany(ctx, organizationID, naturalKey, values)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing members: %w", err)
	}
	out := make(map[string]*domain.Member, len(values))
	for i, value := range values {
		if found[i] != nil {
			out[value] = found[i]
		}
	}
	return out, nil
}

// Import validates the rows and upserts every accepted row on the catalog's
// natural key. Persistence failures are reported per row and never retried.
func (s *Service) Import(ctx context.Context, req Request) (ImportSummary, error) {
	started := time.Now()
	if req.OrganizationID == uuid.Nil {
		return ImportSummary{}, ErrOrganizationRequired
	}
	if s.members == nil {
		return ImportSummary{}, errors.New("member repository is not configured")
	}
	if s.organizations != nil {
		if _, err := s.organizations.GetByID(ctx, req.OrganizationID); err != nil {
			return ImportSummary{}, fmt.Errorf("failed to load organization %s: %w", req.OrganizationID, err)
		}
	}

	catalog, result, err := s.validate(req)
	if err != nil {
		return ImportSummary{}, err
	}
	entry := s.log.WithFields(logrus.Fields{
		"organization_id": req.OrganizationID.String(),
		"catalog":         catalog.Name(),
		"file":            req.FileName,
	})

	departmentKey, departments, err := s.loadDepartments(ctx, req, catalog)
	if err != nil {
		return ImportSummary{}, err
	}
	var group *domain.Department
	if req.GroupID != uuid.Nil {
		if group = findGroup(departments, req.GroupID); group == nil {
			return ImportSummary{}, fmt.Errorf("%w: %s", ErrGroupNotFound, req.GroupID)
		}
		entry = entry.WithField("group", group.Name)
	}

	summary := ImportSummary{Summary: result.Summary}
	naturalKey := catalog.NaturalKey()

	var previous map[string]*domain.Member
	if req.TrackHistory {
		if previous, err = s.existingMembers(ctx, req.OrganizationID, naturalKey, result.Accepted); err != nil {
			return ImportSummary{}, err
		}
	}
	for _, record := range result.Accepted {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		member := domain.NewMemberFromValues(req.OrganizationID, record.Values)
		switch {
		case group != nil:
			member = member.WithDepartment(*group)
		case member.DepartmentName != "":
			if department, ok := domain.FindDepartment(departments, member.DepartmentName, domain.DepartmentMatchOptions{
				MatchDescription: req.AllowMatchingWithSubfields,
			}); ok {
				member = member.WithDepartment(department)
			} else {
				summary.Warn(validator.RowError{
					Row:     record.Row,
					Field:   departmentKey,
					Message: fmt.Sprintf("Department %q not found (skipped)", member.DepartmentName),
					Stage:   validator.StagePersistence,
				})
				member = member.WithoutDepartment()
			}
		}

		saved, outcome, err := s.members.Upsert(ctx, member, naturalKey)
		if err != nil {
			summary.Success--
			summary.Fail(validator.RowError{
				Row:     record.Row,
				Message: err.Error(),
				Stage:   validator.StagePersistence,
			})
			entry.WithError(err).WithField("row", record.Row).Warn("failed to persist member")
			continue
		}

		switch outcome {
		case domain.UpsertCreated:
			summary.Created++
		case domain.UpsertUpdated:
			summary.Updated++
		}
		if req.TrackHistory {
			row := record.Row
			key := saved.NaturalKey(naturalKey)
			changes := domain.DiffMembers(previous[key], saved)
			s.record(ctx, req, catalog, &row, domain.ImportLogStageHistory, domain.HistoryMessage(key, outcome, changes))
			snapshot := saved
			previous[key] = &snapshot
		}
	}

	for _, rowErr := range summary.Errors {
		row := rowErr.Row
		stage := domain.ImportLogStageValidation
		if rowErr.Stage == validator.StagePersistence {
			stage = domain.ImportLogStagePersistence
		}
		s.record(ctx, req, catalog, &row, stage, rowErr.Message)
	}
	for _, warning := range summary.Warnings {
		row := warning.Row
		s.record(ctx, req, catalog, &row, domain.ImportLogStageWarning, warning.Message)
	}

	s.metrics.AddRows(catalog.Name(), ModeImport, metrics.OutcomeCreated, summary.Created)
	s.metrics.AddRows(catalog.Name(), ModeImport, metrics.OutcomeUpdated, summary.Updated)
	s.metrics.AddRows(catalog.Name(), ModeImport, metrics.OutcomeRejected, summary.FailedAt(validator.StageValidation))
	s.metrics.AddRows(catalog.Name(), ModeImport, metrics.OutcomeFailed, summary.FailedAt(validator.StagePersistence))
	s.metrics.ObserveRun(catalog.Name(), ModeImport, started)

	entry.WithFields(logrus.Fields{
		"created":  summary.Created,
		"updated":  summary.Updated,
		"failed":   summary.Failed,
		"warnings": len(summary.Warnings),
	}).Info("import finished")

	summary.Summary = summary.Summary.Capped(s.maxErrors)
	return summary, nil
}

// loadDepartments fetches the organization's departments when the mapping
// carries a department column or the request names a group.
func (s *Service) loadDepartments(ctx context.Context, req Request, catalog *mapping.Catalog) (string, []domain.Department, error) {
	var key string
	for _, candidate := range []string{"department_id", "department"} {
		if _, ok := catalog.Field(candidate); ok {
			key = candidate
			break
		}
	}
	if s.departments == nil {
		return key, nil, nil
	}
	if _, mapped := req.Mapping.Header(key); req.GroupID == uuid.Nil && (key == "" || !mapped) {
		return key, nil, nil
	}
	departments, err := s.departments.ListByOrganization(ctx, req.OrganizationID)
	if err != nil {
		return key, nil, fmt.Errorf("failed to load departments: %w", err)
	}
	return key, departments, nil
}

func findGroup(departments []domain.Department, id uuid.UUID) *domain.Department {
	for i := range departments {
		if departments[i].ID == id {
			return &departments[i]
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, req Request, catalog *mapping.Catalog, rowNumber *int, stage domain.ImportLogStage, message string) {
	if s.logRepo == nil || message == "" {
		return
	}
	entry := domain.ImportLogEntry{
		OrganizationID: req.OrganizationID,
		Catalog:        catalog.Name(),
		FileName:       req.FileName,
		RowNumber:      rowNumber,
		Stage:          stage,
		Message:        message,
	}
	if err := s.logRepo.Record(ctx, entry); err != nil {
		s.log.WithError(err).Warn("failed to record import log")
	}
}

// Logs lists import log entries for an organization, optionally for one file.
func (s *Service) Logs(ctx context.Context, organizationID uuid.UUID, fileName string, limit, offset int) ([]domain.ImportLogEntry, error) {
	if organizationID == uuid.Nil {
		return nil, ErrOrganizationRequired
	}
	if s.logRepo == nil {
		return []domain.ImportLogEntry{}, nil
	}
	return s.logRepo.List(ctx, organizationID, strings.TrimSpace(fileName), limit, offset)
}
