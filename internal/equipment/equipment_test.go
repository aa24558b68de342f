package equipment

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/auditlog"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/testutil"
	"github.com/uniresearch/research-portal-backend/internal/validation"
	"github.com/uniresearch/research-portal-backend/middleware"
)

var admin = mutation.Request{Access: middleware.AccessContext{UserID: 1, RoleName: "admin", PermissionType: middleware.PermissionFull}}

func setup(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t, &Equipment{}, &LabEquipment{}, &auditlog.AuditLog{})
	rec := mutation.NewRecorder(auditlog.NewService(auditlog.NewRepository(db)), changefeed.NewLocal())
	return NewService(NewRepository(db), rec), db
}

func create(t *testing.T, s *Service, names ...string) {
	t.Helper()
	for _, n := range names {
		if _, err := s.Create(context.Background(), admin, EquipmentInput{Name: n}, listquery.Params{}); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}
}

func TestPublicListIsAlphabetical(t *testing.T) {
	s, _ := setup(t)
	create(t, s, "Spectrometer", "Centrifuge", "Microscope")

	page, err := s.ListPublic(context.Background(), listquery.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.PageSize != 20 || len(page.Data) != 3 || page.Data[0].Name != "Centrifuge" || page.Data[2].Name != "Spectrometer" {
		t.Fatalf("page = %+v", page)
	}
}

func TestLabFilterUsesAssociations(t *testing.T) {
	s, db := setup(t)
	create(t, s, "Centrifuge", "Microscope", "Spectrometer")
	db.Create(&[]LabEquipment{{LabID: 4, EquipmentID: 1, Quantity: 2}, {LabID: 4, EquipmentID: 3, Quantity: 1}, {LabID: 5, EquipmentID: 2, Quantity: 1}})

	page, err := s.ListPublic(context.Background(), listquery.Params{Filters: map[string]string{"lab_id": "4"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 2 || page.Data[0].Name != "Centrifuge" || page.Data[1].Name != "Spectrometer" {
		t.Fatalf("page = %+v", page)
	}

	_, err = s.ListPublic(context.Background(), listquery.Params{Filters: map[string]string{"lab_id": "four"}})
	if fe, ok := validation.AsFieldErrors(err); !ok || fe["lab_id"] == "" {
		t.Fatalf("err = %v", err)
	}
}

func TestDuplicateNameConflicts(t *testing.T) {
	s, _ := setup(t)
	create(t, s, "Microscope")
	_, err := s.Create(context.Background(), admin, EquipmentInput{Name: "Microscope"}, listquery.Params{})
	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) || conflict.Field != "name" {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteRemovesAssociations(t *testing.T) {
	s, db := setup(t)
	create(t, s, "Centrifuge", "Microscope")
	db.Create(&[]LabEquipment{{LabID: 1, EquipmentID: 1, Quantity: 2}, {LabID: 2, EquipmentID: 1, Quantity: 1}, {LabID: 2, EquipmentID: 2, Quantity: 1}})

	res, err := s.Delete(context.Background(), admin, 1, listquery.Params{})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.List.TotalCount != 1 {
		t.Fatalf("remaining = %d", res.List.TotalCount)
	}
	var left int64
	db.Model(&LabEquipment{}).Where("equipment_id = ?", 1).Count(&left)
	if left != 0 {
		t.Fatalf("orphaned associations = %d", left)
	}
	db.Model(&LabEquipment{}).Count(&left)
	if left != 1 {
		t.Fatalf("associations = %d, want 1", left)
	}

	if _, err := s.Delete(context.Background(), admin, 1, listquery.Params{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second delete = %v", err)
	}
}
