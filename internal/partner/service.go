package partner

import (
	"context"
	"fmt"
	"mime/multipart"
	"strconv"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/spreadsheet"
	"github.com/uniresearch/research-portal-backend/internal/storage"
)

var Kind = mutation.Kind{Resource: "partners", Label: "PARTNER"}

// PublicSpec shows partners in their curated order.
var PublicSpec = listquery.Spec{
	Resource:        "partners",
	SearchColumns:   []string{"name", "description"},
	Order:           []listquery.Order{{Column: "display_order"}, {Column: "name"}},
	DefaultPageSize: 12,
}

var AdminSpec = PublicSpec.WithOrder(listquery.Order{Column: "created_at", Desc: true})

type Result = mutation.Result[*Partner, Partner]

type Service interface {
	ListPublic(ctx context.Context, p listquery.Params) (listquery.Page[Partner], error)
	ListAdmin(ctx context.Context, p listquery.Params) (listquery.Page[Partner], error)
	GetByID(ctx context.Context, id uint) (*Partner, error)
	Create(ctx context.Context, req mutation.Request, in PartnerInput, p listquery.Params) (Result, error)
	Update(ctx context.Context, req mutation.Request, id uint, in PartnerInput, p listquery.Params) (Result, error)
	Delete(ctx context.Context, req mutation.Request, id uint, p listquery.Params) (Result, error)
	UploadLogo(ctx context.Context, req mutation.Request, id uint, fh *multipart.FileHeader, p listquery.Params) (Result, error)
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

func (s *service) list(spec listquery.Spec) mutation.Lister[Partner] {
	return func(ctx context.Context, p listquery.Params) (listquery.Page[Partner], error) {
		p = spec.Normalize(p)
		b, err := spec.Build(p)
		if err != nil {
			return listquery.Page[Partner]{}, err
		}
		return s.repo.List(ctx, b, p), nil
	}
}

func (s *service) ListPublic(ctx context.Context, p listquery.Params) (listquery.Page[Partner], error) {
	return s.list(PublicSpec)(ctx, p)
}

func (s *service) ListAdmin(ctx context.Context, p listquery.Params) (listquery.Page[Partner], error) {
	return s.list(AdminSpec)(ctx, p)
}

func (s *service) GetByID(ctx context.Context, id uint) (*Partner, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "partner", "id", strconv.FormatUint(uint64(id), 10))
	}
	return p, nil
}

func (s *service) Create(ctx context.Context, req mutation.Request, in PartnerInput, p listquery.Params) (Result, error) {
	details := map[string]interface{}{"name": in.Name}
	if err := s.recorder.Authorize(ctx, req, Kind, changefeed.ActionCreated, details); err != nil {
		return Result{}, err
	}

	pt := &Partner{}
	err := in.Apply(pt)
	if err == nil {
		err = s.repo.Create(ctx, pt)
	}
	s.recorder.Record(ctx, req, Kind, changefeed.ActionCreated, pt.ID, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "partner created successfully", pt, s.ListAdmin, p), nil
}

func (s *service) Update(ctx context.Context, req mutation.Request, id uint, in PartnerInput, p listquery.Params) (Result, error) {
	details := map[string]interface{}{"name": in.Name}
	if err := s.recorder.Authorize(ctx, req, Kind, changefeed.ActionUpdated, details); err != nil {
		return Result{}, err
	}

	pt, err := s.GetByID(ctx, id)
	if err == nil {
		err = in.Apply(pt)
	}
	if err == nil {
		err = s.repo.Update(ctx, pt)
	}
	s.recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "partner updated successfully", pt, s.ListAdmin, p), nil
}

func (s *service) Delete(ctx context.Context, req mutation.Request, id uint, p listquery.Params) (Result, error) {
	details := map[string]interface{}{}
	if err := s.recorder.Authorize(ctx, req, Kind, changefeed.ActionDeleted, details); err != nil {
		return Result{}, err
	}

	pt, err := s.GetByID(ctx, id)
	if err == nil {
		details["name"] = pt.Name
		err = apperr.FromDB(s.repo.Delete(ctx, id), "partner", "id", strconv.FormatUint(uint64(id), 10))
	}
	s.recorder.Record(ctx, req, Kind, changefeed.ActionDeleted, id, details, err)
	if err != nil {
		return Result{}, err
	}
	s.storage.Replace(ctx, storage.BucketPartnerPics, pt.LogoPath)
	return mutation.Done(ctx, "partner deleted successfully", pt, s.ListAdmin, p), nil
}

// UploadLogo stores a new logo in partner-pics and drops the old object once
// the partner row points at the new one.
func (s *service) UploadLogo(ctx context.Context, req mutation.Request, id uint, fh *multipart.FileHeader, p listquery.Params) (Result, error) {
	details := map[string]interface{}{"field": "logo"}
	if err := s.recorder.Authorize(ctx, req, Kind, changefeed.ActionUpdated, details); err != nil {
		return Result{}, err
	}

	pt, err := s.GetByID(ctx, id)
	var obj storage.Object
	if err == nil {
		obj, err = s.storage.UploadFile(ctx, storage.BucketPartnerPics, fh, storage.Images)
	}
	oldPath := ""
	if err == nil {
		oldPath = pt.LogoPath
		pt.LogoURL, pt.LogoPath = obj.URL, obj.Path
		details["logo_path"] = obj.Path
		if err = s.repo.Update(ctx, pt); err != nil {
			_ = s.storage.Delete(ctx, storage.BucketPartnerPics, obj.Path)
			err = fmt.Errorf("save partner %d logo: %w", id, err)
		}
	}
	s.recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, err)
	if err != nil {
		return Result{}, err
	}
	s.storage.Replace(ctx, storage.BucketPartnerPics, oldPath)
	return mutation.Done(ctx, "partner logo uploaded successfully", pt, s.ListAdmin, p), nil
}

func (s *service) ExportTable(ctx context.Context, p listquery.Params) (spreadsheet.Table, error) {
	b, err := AdminSpec.Build(AdminSpec.Normalize(p))
	if err != nil {
		return spreadsheet.Table{}, err
	}
	rows, err := s.repo.All(ctx, b)
	if err != nil {
		return spreadsheet.Table{}, err
	}
	t := spreadsheet.Table{Sheet: "Partners", Headers: []string{"ID", "Name", "Website", "Display Order", "Logo URL"}, Rows: make([][]string, 0, len(rows))}
	for _, pt := range rows {
		t.Rows = append(t.Rows, []string{
			strconv.FormatUint(uint64(pt.ID), 10), pt.Name, pt.Website, strconv.Itoa(pt.DisplayOrder), pt.LogoURL,
		})
	}
	return t, nil
}
