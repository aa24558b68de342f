package grant

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"strconv"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/spreadsheet"
	"github.com/uniresearch/research-portal-backend/internal/storage"
	"github.com/uniresearch/research-portal-backend/internal/validation"
)

var Kind = mutation.Kind{Resource: "grants", Label: "GRANT"}

// PublicSpec lists grants by start date, most recent first.
var PublicSpec = listquery.Spec{
	Resource:      "grants",
	SearchColumns: []string{"project_id", "title", "project_leader_name", "sponsor_name", "research_group"},
	Enums: map[string]string{
		"type":              "type",
		"status":            "status",
		"sponsor_category":  "sponsor_category",
		"research_alliance": "research_alliance",
		"research_group":    "research_group",
	},
	DateColumn:      "start_date",
	Order:           []listquery.Order{{Column: "start_date", Desc: true}},
	DefaultPageSize: 10,
}

var AdminSpec = PublicSpec.WithOrder(listquery.Order{Column: "created_at", Desc: true})

type (
	Result       = mutation.Result[*Grant, Grant]
	ImportResult = mutation.Result[ImportReport, Grant]
)

type Service interface {
	ListPublic(ctx context.Context, p listquery.Params) (listquery.Page[Grant], error)
	ListAdmin(ctx context.Context, p listquery.Params) (listquery.Page[Grant], error)
	GetByID(ctx context.Context, id uint) (*Grant, error)
	Create(ctx context.Context, req mutation.Request, in GrantInput, p listquery.Params) (Result, error)
	Update(ctx context.Context, req mutation.Request, id uint, in GrantInput, p listquery.Params) (Result, error)
	Delete(ctx context.Context, req mutation.Request, id uint, p listquery.Params) (Result, error)
	Import(ctx context.Context, req mutation.Request, fh *multipart.FileHeader, p listquery.Params) (ImportResult, error)
	ImportFiles(ctx context.Context) ([]storage.File, error)
	ExportTable(ctx context.Context, p listquery.Params) (spreadsheet.Table, error)
}

type service struct {
	repo     Repository
	recorder *mutation.Recorder
	storage  *storage.Service
}

func NewService(repo Repository, rec *mutation.Recorder, store *storage.Service) Service {
	return &service{repo: repo, recorder: rec, storage: store}
}

func (s *service) list(spec listquery.Spec) mutation.Lister[Grant] {
	return func(ctx context.Context, p listquery.Params) (listquery.Page[Grant], error) {
		p = spec.Normalize(p)
		b, err := spec.Build(p)
		if err != nil {
			return listquery.Page[Grant]{}, err
		}
		return s.repo.List(ctx, b, p), nil
	}
}

func (s *service) ListPublic(ctx context.Context, p listquery.Params) (listquery.Page[Grant], error) {
	return s.list(PublicSpec)(ctx, p)
}

func (s *service) ListAdmin(ctx context.Context, p listquery.Params) (listquery.Page[Grant], error) {
	return s.list(AdminSpec)(ctx, p)
}

func (s *service) GetByID(ctx context.Context, id uint) (*Grant, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "grant", "id", strconv.FormatUint(uint64(id), 10))
	}
	return g, nil
}

func grantDetails(in GrantInput) map[string]interface{} {
	return map[string]interface{}{
		"project_id":       in.ProjectID,
		"type":             in.Type,
		"sponsor_category": in.SponsorCategory,
		"approved_amount":  in.ApprovedAmount,
	}
}

func (s *service) Create(ctx context.Context, req mutation.Request, in GrantInput, p listquery.Params) (Result, error) {
	details := grantDetails(in)
	if err := s.recorder.Authorize(ctx, req, Kind, changefeed.ActionCreated, details); err != nil {
		return Result{}, err
	}

	g := &Grant{}
	err := in.Apply(g)
	if err == nil {
		err = apperr.FromDB(s.repo.Create(ctx, g), "grant", "project_id", in.ProjectID)
	}
	s.recorder.Record(ctx, req, Kind, changefeed.ActionCreated, g.ID, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "grant created successfully", g, s.ListAdmin, p), nil
}

func (s *service) Update(ctx context.Context, req mutation.Request, id uint, in GrantInput, p listquery.Params) (Result, error) {
	details := grantDetails(in)
	if err := s.recorder.Authorize(ctx, req, Kind, changefeed.ActionUpdated, details); err != nil {
		return Result{}, err
	}

	g, err := s.GetByID(ctx, id)
	if err == nil {
		err = in.Apply(g)
	}
	if err == nil {
		err = apperr.FromDB(s.repo.Update(ctx, g), "grant", "project_id", in.ProjectID)
	}
	s.recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "grant updated successfully", g, s.ListAdmin, p), nil
}

func (s *service) Delete(ctx context.Context, req mutation.Request, id uint, p listquery.Params) (Result, error) {
	details := map[string]interface{}{}
	if err := s.recorder.Authorize(ctx, req, Kind, changefeed.ActionDeleted, details); err != nil {
		return Result{}, err
	}

	g, err := s.GetByID(ctx, id)
	if err == nil {
		details["project_id"] = g.ProjectID
		err = apperr.FromDB(s.repo.Delete(ctx, id), "grant", "id", strconv.FormatUint(uint64(id), 10))
	}
	s.recorder.Record(ctx, req, Kind, changefeed.ActionDeleted, id, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "grant deleted successfully", g, s.ListAdmin, p), nil
}

// Import parses an xlsx/csv sheet, keeps a copy in the grants bucket and
// upserts every valid row on project_id. Invalid rows are reported, not
// written; valid rows are written even when others fail.
func (s *service) Import(ctx context.Context, req mutation.Request, fh *multipart.FileHeader, p listquery.Params) (ImportResult, error) {
	details := map[string]interface{}{}
	if fh != nil {
		details["file"] = fh.Filename
	}
	if err := s.recorder.Authorize(ctx, req, Kind, changefeed.ActionImported, details); err != nil {
		return ImportResult{}, err
	}

	report, err := s.importFile(ctx, fh)
	if err == nil {
		details["created"], details["updated"], details["failed"] = report.Created, report.Updated, len(report.Failed)
	}
	s.recorder.Record(ctx, req, Kind, changefeed.ActionImported, 0, details, err)
	if err != nil {
		return ImportResult{}, err
	}

	msg := fmt.Sprintf("imported %d of %d rows", report.Created+report.Updated, report.Total)
	return mutation.Done(ctx, msg, report, s.ListAdmin, p), nil
}

func (s *service) importFile(ctx context.Context, fh *multipart.FileHeader) (ImportReport, error) {
	report := ImportReport{Failed: []RowError{}}
	if fh == nil {
		return report, validation.FieldErrors{"file": "is required"}
	}
	if fh.Size > storage.Spreadsheets.MaxSize {
		return report, validation.FieldErrors{"file": fmt.Sprintf("file size exceeds %dMB limit", storage.Spreadsheets.MaxSize/(1024*1024))}
	}

	f, err := fh.Open()
	if err != nil {
		return report, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, storage.Spreadsheets.MaxSize+1))
	if err != nil {
		return report, fmt.Errorf("read upload: %w", err)
	}

	records, err := spreadsheet.ReadRecords(fh.Filename, bytes.NewReader(data))
	if err != nil {
		return report, err
	}
	if len(records) == 0 {
		return report, validation.FieldErrors{"file": "spreadsheet has no data rows"}
	}

	obj, err := s.storage.Upload(ctx, storage.BucketGrants, fh.Filename, int64(len(data)), bytes.NewReader(data), storage.Spreadsheets)
	if err != nil {
		return report, err
	}
	report.File, report.FileURL = obj.Path, obj.URL

	rows := make([]Grant, 0, len(records))
	seen := make(map[string]int, len(records))
	for _, rec := range records {
		report.Total++
		in, errs := inputFromRecord(rec)
		var g Grant
		if err := in.Apply(&g); err != nil {
			if fe, ok := validation.AsFieldErrors(err); ok {
				for k, v := range fe {
					errs.Add(k, v)
				}
			}
		}
		if first, dup := seen[in.ProjectID]; dup && in.ProjectID != "" {
			errs.Add("project_id", fmt.Sprintf("duplicates row %d", first))
		}
		if len(errs) > 0 {
			report.Failed = append(report.Failed, RowError{Row: rec.Row, ProjectID: in.ProjectID, Errors: errs})
			continue
		}
		seen[g.ProjectID] = rec.Row
		rows = append(rows, g)
	}

	updated, err := s.repo.Upsert(ctx, rows)
	if err != nil {
		_ = s.storage.Delete(ctx, storage.BucketGrants, obj.Path)
		return report, fmt.Errorf("upsert grants: %w", err)
	}
	report.Updated = updated
	report.Created = len(rows) - updated
	log.Printf("📥 grant import %s: %d created, %d updated, %d failed", fh.Filename, report.Created, report.Updated, len(report.Failed))
	return report, nil
}

// ImportFiles lists the sheets kept from earlier imports, newest first.
func (s *service) ImportFiles(ctx context.Context) ([]storage.File, error) {
	return s.storage.List(ctx, storage.BucketGrants)
}

var exportHeaders = []string{"Project ID", "Title", "Start Date", "End Date", "Cost Center",
	"Project Leader", "Project Leader Email", "Department", "Research Alliance", "Research Group",
	"Type", "Status", "Sponsor", "Sponsor Category", "Sub Sponsor", "Approved Amount"}

func (s *service) ExportTable(ctx context.Context, p listquery.Params) (spreadsheet.Table, error) {
	b, err := AdminSpec.Build(AdminSpec.Normalize(p))
	if err != nil {
		return spreadsheet.Table{}, err
	}
	rows, err := s.repo.All(ctx, b)
	if err != nil {
		return spreadsheet.Table{}, err
	}

	t := spreadsheet.Table{Sheet: "Grants", Headers: exportHeaders, Rows: make([][]string, 0, len(rows))}
	for _, g := range rows {
		t.Rows = append(t.Rows, []string{
			g.ProjectID, g.Title, formatDate(g.StartDate), formatDate(g.EndDate), g.CostCenter,
			g.ProjectLeaderName, g.ProjectLeaderEmail, g.ProjectLeaderDepartment, g.ResearchAlliance, g.ResearchGroup,
			g.Type, g.Status, g.SponsorName, g.SponsorCategory, g.SubSponsor,
			strconv.FormatFloat(g.ApprovedAmount, 'f', 2, 64),
		})
	}
	return t, nil
}
