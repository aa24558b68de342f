package equipment

import (
	"context"
	"strconv"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/spreadsheet"
)

var Kind = mutation.Kind{Resource: "equipment", Label: "EQUIPMENT"}

// PublicSpec lists the catalogue alphabetically. lab_id narrows it to what
// one lab holds.
var PublicSpec = listquery.Spec{
	Resource:        "equipment",
	SearchColumns:   []string{"name", "description"},
	Related:         map[string]string{"lab_id": "id IN (SELECT equipment_id FROM lab_equipment WHERE lab_id = ?)"},
	Order:           []listquery.Order{{Column: "name"}},
	DefaultPageSize: 20,
}

var AdminSpec = PublicSpec.WithOrder(listquery.Order{Column: "created_at", Desc: true})

type Result = mutation.Result[*Equipment, Equipment]

type Service struct {
	Repo     *Repository
	Recorder *mutation.Recorder
}

func NewService(r *Repository, rec *mutation.Recorder) *Service {
	return &Service{Repo: r, Recorder: rec}
}

func (s *Service) list(spec listquery.Spec) mutation.Lister[Equipment] {
	return func(ctx context.Context, p listquery.Params) (listquery.Page[Equipment], error) {
		p = spec.Normalize(p)
		b, err := spec.Build(p)
		if err != nil {
			return listquery.Page[Equipment]{}, err
		}
		return s.Repo.List(ctx, b, p), nil
	}
}

func (s *Service) ListPublic(ctx context.Context, p listquery.Params) (listquery.Page[Equipment], error) {
	return s.list(PublicSpec)(ctx, p)
}

func (s *Service) ListAdmin(ctx context.Context, p listquery.Params) (listquery.Page[Equipment], error) {
	return s.list(AdminSpec)(ctx, p)
}

func (s *Service) GetByID(ctx context.Context, id uint) (*Equipment, error) {
	e, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "equipment", "id", strconv.FormatUint(uint64(id), 10))
	}
	return e, nil
}

func (s *Service) Create(ctx context.Context, req mutation.Request, in EquipmentInput, p listquery.Params) (Result, error) {
	details := map[string]interface{}{"name": in.Name}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionCreated, details); err != nil {
		return Result{}, err
	}

	e := &Equipment{}
	err := in.Apply(e)
	if err == nil {
		err = apperr.FromDB(s.Repo.Create(ctx, e), "equipment", "name", in.Name)
	}
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionCreated, e.ID, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "equipment created successfully", e, s.ListAdmin, p), nil
}

func (s *Service) Update(ctx context.Context, req mutation.Request, id uint, in EquipmentInput, p listquery.Params) (Result, error) {
	details := map[string]interface{}{"name": in.Name}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionUpdated, details); err != nil {
		return Result{}, err
	}

	e, err := s.GetByID(ctx, id)
	if err == nil {
		err = in.Apply(e)
	}
	if err == nil {
		err = apperr.FromDB(s.Repo.Update(ctx, e), "equipment", "name", in.Name)
	}
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "equipment updated successfully", e, s.ListAdmin, p), nil
}

// Delete also removes the equipment from every lab that holds it.
func (s *Service) Delete(ctx context.Context, req mutation.Request, id uint, p listquery.Params) (Result, error) {
	details := map[string]interface{}{}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionDeleted, details); err != nil {
		return Result{}, err
	}

	e, err := s.GetByID(ctx, id)
	if err == nil {
		details["name"] = e.Name
		var removed int64
		removed, err = s.Repo.Delete(ctx, id)
		details["lab_associations_removed"] = removed
		err = apperr.FromDB(err, "equipment", "id", strconv.FormatUint(uint64(id), 10))
	}
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionDeleted, id, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "equipment deleted successfully", e, s.ListAdmin, p), nil
}

func (s *Service) ExportTable(ctx context.Context, p listquery.Params) (spreadsheet.Table, error) {
	b, err := AdminSpec.Build(AdminSpec.Normalize(p))
	if err != nil {
		return spreadsheet.Table{}, err
	}
	rows, err := s.Repo.All(ctx, b)
	if err != nil {
		return spreadsheet.Table{}, err
	}
	t := spreadsheet.Table{Sheet: "Equipment", Headers: []string{"ID", "Name", "Description"}, Rows: make([][]string, 0, len(rows))}
	for _, e := range rows {
		t.Rows = append(t.Rows, []string{strconv.FormatUint(uint64(e.ID), 10), e.Name, e.Description})
	}
	return t, nil
}
