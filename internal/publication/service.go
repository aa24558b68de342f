package publication

import (
	"context"
	"strconv"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/spreadsheet"
)

var Kind = mutation.Kind{Resource: "publications", Label: "PUBLICATION"}

// PublicSpec lists the newest publications first.
var PublicSpec = listquery.Spec{
	Resource:      "publications",
	SearchColumns: []string{"ref_no", "title", "journal", "author_name", "co_authors"},
	Enums: map[string]string{
		"level":          "level",
		"type":           "type",
		"category":       "category",
		"status":         "status",
		"research_group": "research_group",
	},
	DateColumn:      "date",
	Order:           []listquery.Order{{Column: "date", Desc: true}},
	DefaultPageSize: 10,
}

var AdminSpec = PublicSpec.WithOrder(listquery.Order{Column: "created_at", Desc: true})

type Result = mutation.Result[*Publication, Publication]

type Service struct {
	Repo     *Repository
	Recorder *mutation.Recorder
}

func NewService(r *Repository, rec *mutation.Recorder) *Service {
	return &Service{Repo: r, Recorder: rec}
}

func (s *Service) list(spec listquery.Spec) mutation.Lister[Publication] {
	return func(ctx context.Context, p listquery.Params) (listquery.Page[Publication], error) {
		p = spec.Normalize(p)
		b, err := spec.Build(p)
		if err != nil {
			return listquery.Page[Publication]{}, err
		}
		return s.Repo.List(ctx, b, p), nil
	}
}

func (s *Service) ListPublic(ctx context.Context, p listquery.Params) (listquery.Page[Publication], error) {
	return s.list(PublicSpec)(ctx, p)
}

func (s *Service) ListAdmin(ctx context.Context, p listquery.Params) (listquery.Page[Publication], error) {
	return s.list(AdminSpec)(ctx, p)
}

func (s *Service) GetByID(ctx context.Context, id uint) (*Publication, error) {
	p, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "publication", "id", strconv.FormatUint(uint64(id), 10))
	}
	return p, nil
}

// ===========================
// 🎯 Create Publication
func (s *Service) Create(ctx context.Context, req mutation.Request, in PublicationInput, p listquery.Params) (Result, error) {
	details := map[string]interface{}{"ref_no": in.RefNo, "title": in.Title}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionCreated, details); err != nil {
		return Result{}, err
	}

	pub := &Publication{}
	err := in.Apply(pub)
	if err == nil {
		err = apperr.FromDB(s.Repo.Create(ctx, pub), "publication", "ref_no", in.RefNo)
	}
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionCreated, pub.ID, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "publication created successfully", pub, s.ListAdmin, p), nil
}

// ===========================
// 🛠 Update Publication
func (s *Service) Update(ctx context.Context, req mutation.Request, id uint, in PublicationInput, p listquery.Params) (Result, error) {
	details := map[string]interface{}{"ref_no": in.RefNo, "title": in.Title}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionUpdated, details); err != nil {
		return Result{}, err
	}

	pub, err := s.GetByID(ctx, id)
	if err == nil {
		err = in.Apply(pub)
	}
	if err == nil {
		err = apperr.FromDB(s.Repo.Update(ctx, pub), "publication", "ref_no", in.RefNo)
	}
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "publication updated successfully", pub, s.ListAdmin, p), nil
}

// ===========================
// ❌ Delete Publication
func (s *Service) Delete(ctx context.Context, req mutation.Request, id uint, p listquery.Params) (Result, error) {
	details := map[string]interface{}{}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionDeleted, details); err != nil {
		return Result{}, err
	}

	pub, err := s.GetByID(ctx, id)
	if err == nil {
		details["ref_no"] = pub.RefNo
		err = apperr.FromDB(s.Repo.Delete(ctx, id), "publication", "id", strconv.FormatUint(uint64(id), 10))
	}
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionDeleted, id, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "publication deleted successfully", pub, s.ListAdmin, p), nil
}

var exportHeaders = []string{"Ref No", "Title", "Journal", "Impact Factor", "Date", "Level", "Type",
	"Category", "Status", "Author", "Author Email", "Co-Authors", "Research Group"}

func (s *Service) ExportTable(ctx context.Context, p listquery.Params) (spreadsheet.Table, error) {
	b, err := AdminSpec.Build(AdminSpec.Normalize(p))
	if err != nil {
		return spreadsheet.Table{}, err
	}
	rows, err := s.Repo.All(ctx, b)
	if err != nil {
		return spreadsheet.Table{}, err
	}

	t := spreadsheet.Table{Sheet: "Publications", Headers: exportHeaders, Rows: make([][]string, 0, len(rows))}
	for _, pub := range rows {
		date := ""
		if pub.Date != nil {
			date = pub.Date.Format(dateLayout)
		}
		t.Rows = append(t.Rows, []string{
			pub.RefNo, pub.Title, pub.Journal,
			strconv.FormatFloat(pub.ImpactFactor, 'f', -1, 64),
			date, pub.Level, pub.Type, pub.Category, pub.Status,
			pub.AuthorName, pub.AuthorEmail, pub.CoAuthors, pub.ResearchGroup,
		})
	}
	return t, nil
}
