package event

import (
	"context"
	"fmt"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/spreadsheet"
	"github.com/uniresearch/research-portal-backend/internal/storage"
)

var Kind = mutation.Kind{Resource: "events", Label: "EVENT"}

// PublicSpec lists events chronologically for the public calendar.
var PublicSpec = listquery.Spec{
	Resource:      "events",
	SearchColumns: []string{"title", "description", "location", "organizer"},
	Enums: map[string]string{
		"category": "category",
		"priority": "priority",
		"status":   "status",
	},
	DateColumn:      "date",
	Order:           []listquery.Order{{Column: "date"}},
	DefaultPageSize: 9,
}

// AdminSpec is the admin table: newest first.
var AdminSpec = PublicSpec.WithOrder(listquery.Order{Column: "created_at", Desc: true})

type Result = mutation.Result[*Event, Event]

// Service wraps business logic for portal events
type Service struct {
	Repo     *Repository
	Recorder *mutation.Recorder
	Storage  *storage.Service
}

func NewService(r *Repository, rec *mutation.Recorder, store *storage.Service) *Service {
	return &Service{Repo: r, Recorder: rec, Storage: store}
}

func (s *Service) list(spec listquery.Spec) mutation.Lister[Event] {
	return func(ctx context.Context, p listquery.Params) (listquery.Page[Event], error) {
		p = spec.Normalize(p)
		b, err := spec.Build(p)
		if err != nil {
			return listquery.Page[Event]{}, err
		}
		return s.Repo.List(ctx, b, p), nil
	}
}

// ===========================
// 📄 Public and admin lists
func (s *Service) ListPublic(ctx context.Context, p listquery.Params) (listquery.Page[Event], error) {
	return s.list(PublicSpec)(ctx, p)
}

func (s *Service) ListAdmin(ctx context.Context, p listquery.Params) (listquery.Page[Event], error) {
	return s.list(AdminSpec)(ctx, p)
}

// ===========================
// 🔍 Get Event
func (s *Service) GetByID(ctx context.Context, id uint) (*Event, error) {
	e, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "event", "id", strconv.FormatUint(uint64(id), 10))
	}
	return e, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.Repo.GetStats(ctx, time.Now().UTC())
}

// ===========================
// 🎯 Create Event
func (s *Service) Create(ctx context.Context, req mutation.Request, in EventInput, p listquery.Params) (Result, error) {
	details := map[string]interface{}{"title": in.Title, "category": in.Category, "date": in.Date}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionCreated, details); err != nil {
		return Result{}, err
	}

	e := &Event{}
	if err := in.Apply(e); err != nil {
		s.Recorder.Record(ctx, req, Kind, changefeed.ActionCreated, 0, details, err)
		return Result{}, err
	}
	err := s.Repo.Create(ctx, e)
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionCreated, e.ID, details, err)
	if err != nil {
		return Result{}, fmt.Errorf("create event: %w", err)
	}
	return mutation.Done(ctx, "event created successfully", e, s.ListAdmin, p), nil
}

// ===========================
// 🛠 Update Event
func (s *Service) Update(ctx context.Context, req mutation.Request, id uint, in EventInput, p listquery.Params) (Result, error) {
	details := map[string]interface{}{"title": in.Title, "category": in.Category, "date": in.Date}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionUpdated, details); err != nil {
		return Result{}, err
	}

	e, err := s.GetByID(ctx, id)
	if err != nil {
		s.Recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, err)
		return Result{}, err
	}
	if err := in.Apply(e); err != nil {
		s.Recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, err)
		return Result{}, err
	}
	err = s.Repo.Update(ctx, e)
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, err)
	if err != nil {
		return Result{}, fmt.Errorf("update event %d: %w", id, err)
	}
	return mutation.Done(ctx, "event updated successfully", e, s.ListAdmin, p), nil
}

// ===========================
// ❌ Delete Event
func (s *Service) Delete(ctx context.Context, req mutation.Request, id uint, p listquery.Params) (Result, error) {
	details := map[string]interface{}{}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionDeleted, details); err != nil {
		return Result{}, err
	}

	e, err := s.GetByID(ctx, id)
	if err == nil {
		details["title"] = e.Title
		err = s.Repo.Delete(ctx, id)
		err = apperr.FromDB(err, "event", "id", strconv.FormatUint(uint64(id), 10))
	}
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionDeleted, id, details, err)
	if err != nil {
		return Result{}, err
	}

	if s.Storage != nil {
		s.Storage.Replace(ctx, storage.BucketEventPics, e.ImagePath)
	}
	return mutation.Done(ctx, "event deleted successfully", e, s.ListAdmin, p), nil
}

// ===========================
// 🖼 Upload Event Image
// The new image replaces the previous object once the row is saved.
func (s *Service) UploadImage(ctx context.Context, req mutation.Request, id uint, fh *multipart.FileHeader, p listquery.Params) (Result, error) {
	details := map[string]interface{}{"field": "image"}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionUpdated, details); err != nil {
		return Result{}, err
	}

	e, err := s.GetByID(ctx, id)
	if err != nil {
		s.Recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, err)
		return Result{}, err
	}
	obj, err := s.Storage.UploadFile(ctx, storage.BucketEventPics, fh, storage.Images)
	if err != nil {
		s.Recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, err)
		return Result{}, err
	}

	oldPath := e.ImagePath
	e.ImageURL, e.ImagePath = obj.URL, obj.Path
	details["image_path"] = obj.Path
	if err := s.Repo.Update(ctx, e); err != nil {
		_ = s.Storage.Delete(ctx, storage.BucketEventPics, obj.Path)
		s.Recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, err)
		return Result{}, fmt.Errorf("save event %d image: %w", id, err)
	}
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, nil)
	s.Storage.Replace(ctx, storage.BucketEventPics, oldPath)

	return mutation.Done(ctx, "event image uploaded successfully", e, s.ListAdmin, p), nil
}

// ===========================
// 📤 Export
var exportHeaders = []string{"ID", "Title", "Date", "Time", "Location", "Category", "Organizer",
	"Registration Required", "Registration Deadline", "Contact Email", "Priority", "Status", "Created At"}

func (s *Service) ExportTable(ctx context.Context, p listquery.Params) (spreadsheet.Table, error) {
	b, err := AdminSpec.Build(AdminSpec.Normalize(p))
	if err != nil {
		return spreadsheet.Table{}, err
	}
	rows, err := s.Repo.All(ctx, b)
	if err != nil {
		return spreadsheet.Table{}, err
	}

	t := spreadsheet.Table{Sheet: "Events", Headers: exportHeaders, Rows: make([][]string, 0, len(rows))}
	for _, e := range rows {
		deadline := ""
		if e.RegistrationDeadline != nil {
			deadline = e.RegistrationDeadline.Format(dateLayout)
		}
		t.Rows = append(t.Rows, []string{
			strconv.FormatUint(uint64(e.ID), 10),
			e.Title,
			e.Date.Format(dateLayout),
			e.Time,
			e.Location,
			e.Category,
			e.Organizer,
			strconv.FormatBool(e.RegistrationRequired),
			deadline,
			e.ContactEmail,
			e.Priority,
			e.Status,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return t, nil
}
