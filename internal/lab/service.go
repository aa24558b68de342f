package lab

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/equipment"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/spreadsheet"
)

var (
	Kind          = mutation.Kind{Resource: "labs", Label: "LAB"}
	EquipmentKind = mutation.Kind{Resource: "lab_equipment", Label: "LAB_EQUIPMENT"}
)

// PublicSpec lists labs by name. equipment_id keeps labs holding that item.
var PublicSpec = listquery.Spec{
	Resource:      "labs",
	SearchColumns: []string{"name", "head_name", "research_area", "location", "description"},
	Enums: map[string]string{
		"type":          "type",
		"status":        "status",
		"research_area": "research_area",
	},
	Related:         map[string]string{"equipment_id": "id IN (SELECT lab_id FROM lab_equipment WHERE equipment_id = ?)"},
	Order:           []listquery.Order{{Column: "name"}},
	DefaultPageSize: 9,
}

var AdminSpec = PublicSpec.WithOrder(listquery.Order{Column: "created_at", Desc: true})

const equipmentPageSize = 20

type (
	Result          = mutation.Result[*Lab, Lab]
	EquipmentResult = mutation.Result[*equipment.LabEquipment, equipment.LabEquipment]
)

type Service struct {
	Repo     *Repository
	Recorder *mutation.Recorder
}

func NewService(r *Repository, rec *mutation.Recorder) *Service {
	return &Service{Repo: r, Recorder: rec}
}

func (s *Service) list(spec listquery.Spec) mutation.Lister[Lab] {
	return func(ctx context.Context, p listquery.Params) (listquery.Page[Lab], error) {
		p = spec.Normalize(p)
		b, err := spec.Build(p)
		if err != nil {
			return listquery.Page[Lab]{}, err
		}
		return s.Repo.List(ctx, b, p), nil
	}
}

func (s *Service) ListPublic(ctx context.Context, p listquery.Params) (listquery.Page[Lab], error) {
	return s.list(PublicSpec)(ctx, p)
}

func (s *Service) ListAdmin(ctx context.Context, p listquery.Params) (listquery.Page[Lab], error) {
	return s.list(AdminSpec)(ctx, p)
}

func idString(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func (s *Service) GetByID(ctx context.Context, id uint) (*Lab, error) {
	l, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "lab", "id", idString(id))
	}
	return l, nil
}

// ===========================
// 🎯 Create Lab
func (s *Service) Create(ctx context.Context, req mutation.Request, in LabInput, p listquery.Params) (Result, error) {
	details := map[string]interface{}{"name": in.Name}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionCreated, details); err != nil {
		return Result{}, err
	}

	l := &Lab{}
	err := in.Apply(l)
	if err == nil {
		err = s.Repo.Create(ctx, l)
	}
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionCreated, l.ID, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "lab created successfully", l, s.ListAdmin, p), nil
}

// ===========================
// 🛠 Update Lab
func (s *Service) Update(ctx context.Context, req mutation.Request, id uint, in LabInput, p listquery.Params) (Result, error) {
	details := map[string]interface{}{"name": in.Name}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionUpdated, details); err != nil {
		return Result{}, err
	}

	l, err := s.GetByID(ctx, id)
	if err == nil {
		err = in.Apply(l)
	}
	if err == nil {
		err = s.Repo.Update(ctx, l)
	}
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, id, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "lab updated successfully", l, s.ListAdmin, p), nil
}

// ===========================
// ❌ Delete Lab
// The lab's equipment rows go in the same transaction.
func (s *Service) Delete(ctx context.Context, req mutation.Request, id uint, p listquery.Params) (Result, error) {
	details := map[string]interface{}{}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionDeleted, details); err != nil {
		return Result{}, err
	}

	l, err := s.GetByID(ctx, id)
	if err == nil {
		details["name"] = l.Name
		details["equipment_removed"] = len(l.Equipment)
		err = apperr.FromDB(s.Repo.Delete(ctx, id), "lab", "id", idString(id))
	}
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionDeleted, id, details, err)
	if err != nil {
		return Result{}, err
	}
	return mutation.Done(ctx, "lab deleted successfully", l, s.ListAdmin, p), nil
}

// ===========================
// 🔗 Lab equipment

// ListEquipment pages through what one lab holds, oldest assignment first.
func (s *Service) ListEquipment(ctx context.Context, labID uint, p listquery.Params) (listquery.Page[equipment.LabEquipment], error) {
	if err := s.Repo.Exists(ctx, labID); err != nil {
		return listquery.Page[equipment.LabEquipment]{}, apperr.FromDB(err, "lab", "id", idString(labID))
	}
	return s.equipmentList(labID)(ctx, p)
}

func (s *Service) equipmentList(labID uint) mutation.Lister[equipment.LabEquipment] {
	return func(ctx context.Context, p listquery.Params) (listquery.Page[equipment.LabEquipment], error) {
		p = p.Normalize(equipmentPageSize)
		b := listquery.New("lab_equipment").
			Where("lab", "lab_id = ?", labID).
			OrderBy("created_at", false)
		return s.Repo.ListLabEquipment(ctx, b, p), nil
	}
}

// lookup resolves the lab and the catalogue entry, 404 on either.
func (s *Service) lookup(ctx context.Context, labID, equipmentID uint) (*equipment.Equipment, error) {
	if err := s.Repo.Exists(ctx, labID); err != nil {
		return nil, apperr.FromDB(err, "lab", "id", idString(labID))
	}
	e, err := s.Repo.GetEquipment(ctx, equipmentID)
	if err != nil {
		return nil, apperr.FromDB(err, "equipment", "id", idString(equipmentID))
	}
	return e, nil
}

// AssignEquipment adds equipment to the lab and returns the refetched
// equipment list of that lab.
func (s *Service) AssignEquipment(ctx context.Context, req mutation.Request, labID uint, in AssignInput, p listquery.Params) (EquipmentResult, error) {
	details := map[string]interface{}{"lab_id": labID, "equipment_id": in.EquipmentID, "quantity": in.Quantity}
	if err := s.Recorder.Authorize(ctx, req, EquipmentKind, changefeed.ActionCreated, details); err != nil {
		return EquipmentResult{}, err
	}

	if in.Quantity == 0 {
		in.Quantity = 1
	}
	le := &equipment.LabEquipment{LabID: labID, EquipmentID: in.EquipmentID, Quantity: in.Quantity}
	e, err := s.lookup(ctx, labID, in.EquipmentID)
	if err == nil {
		err = checkQuantity(in.Quantity)
	}
	if err == nil {
		err = apperr.FromDB(s.Repo.CreateLabEquipment(ctx, le), "lab equipment", "equipment_id", idString(in.EquipmentID))
	}
	s.Recorder.Record(ctx, req, EquipmentKind, changefeed.ActionCreated, le.ID, details, err)
	if err != nil {
		return EquipmentResult{}, err
	}
	le.Equipment = e
	return mutation.Done(ctx, "equipment assigned to lab", le, s.equipmentList(labID), p), nil
}

// UpdateEquipmentQuantity changes how many units the lab holds.
func (s *Service) UpdateEquipmentQuantity(ctx context.Context, req mutation.Request, labID, equipmentID uint, in QuantityInput, p listquery.Params) (EquipmentResult, error) {
	details := map[string]interface{}{"lab_id": labID, "equipment_id": equipmentID, "quantity": in.Quantity}
	if err := s.Recorder.Authorize(ctx, req, EquipmentKind, changefeed.ActionUpdated, details); err != nil {
		return EquipmentResult{}, err
	}

	var le *equipment.LabEquipment
	_, err := s.lookup(ctx, labID, equipmentID)
	if err == nil {
		err = checkQuantity(in.Quantity)
	}
	if err == nil {
		le, err = s.Repo.GetLabEquipment(ctx, labID, equipmentID)
		err = apperr.FromDB(err, "lab equipment", "equipment_id", idString(equipmentID))
	}
	if err == nil {
		err = s.Repo.UpdateQuantity(ctx, le, in.Quantity)
	}
	var id uint
	if le != nil {
		id = le.ID
	}
	s.Recorder.Record(ctx, req, EquipmentKind, changefeed.ActionUpdated, id, details, err)
	if err != nil {
		return EquipmentResult{}, err
	}
	le.Quantity = in.Quantity
	return mutation.Done(ctx, "equipment quantity updated", le, s.equipmentList(labID), p), nil
}

// RemoveEquipment drops the equipment from the lab. The catalogue entry stays.
func (s *Service) RemoveEquipment(ctx context.Context, req mutation.Request, labID, equipmentID uint, p listquery.Params) (EquipmentResult, error) {
	details := map[string]interface{}{"lab_id": labID, "equipment_id": equipmentID}
	if err := s.Recorder.Authorize(ctx, req, EquipmentKind, changefeed.ActionDeleted, details); err != nil {
		return EquipmentResult{}, err
	}

	var le *equipment.LabEquipment
	_, err := s.lookup(ctx, labID, equipmentID)
	if err == nil {
		le, err = s.Repo.GetLabEquipment(ctx, labID, equipmentID)
		err = apperr.FromDB(err, "lab equipment", "equipment_id", idString(equipmentID))
	}
	if err == nil {
		err = apperr.FromDB(s.Repo.DeleteLabEquipment(ctx, labID, equipmentID), "lab equipment", "equipment_id", idString(equipmentID))
	}
	var id uint
	if le != nil {
		id = le.ID
	}
	s.Recorder.Record(ctx, req, EquipmentKind, changefeed.ActionDeleted, id, details, err)
	if err != nil {
		return EquipmentResult{}, err
	}
	return mutation.Done(ctx, "equipment removed from lab", le, s.equipmentList(labID), p), nil
}

// ===========================
// 📤 Export
var exportHeaders = []string{"ID", "Name", "Head", "Head Email", "Contact Phone", "Type",
	"Research Area", "Location", "Status", "Equipment"}

func (s *Service) ExportTable(ctx context.Context, p listquery.Params) (spreadsheet.Table, error) {
	b, err := AdminSpec.Build(AdminSpec.Normalize(p))
	if err != nil {
		return spreadsheet.Table{}, err
	}
	rows, err := s.Repo.All(ctx, b)
	if err != nil {
		return spreadsheet.Table{}, err
	}

	t := spreadsheet.Table{Sheet: "Labs", Headers: exportHeaders, Rows: make([][]string, 0, len(rows))}
	for _, l := range rows {
		items := make([]string, 0, len(l.Equipment))
		for _, le := range l.Equipment {
			if le.Equipment != nil {
				items = append(items, fmt.Sprintf("%s x%d", le.Equipment.Name, le.Quantity))
			}
		}
		t.Rows = append(t.Rows, []string{
			idString(l.ID), l.Name, l.HeadName, l.HeadEmail, l.ContactPhone, l.Type,
			l.ResearchArea, l.Location, l.Status, strings.Join(items, "; "),
		})
	}
	return t, nil
}
