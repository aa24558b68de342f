package lab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/auditlog"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/equipment"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/testutil"
	"github.com/uniresearch/research-portal-backend/internal/validation"
	"github.com/uniresearch/research-portal-backend/middleware"
)

var admin = mutation.Request{Access: middleware.AccessContext{UserID: 1, RoleName: "admin", PermissionType: middleware.PermissionFull}}

func setup(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t, &equipment.Equipment{}, &Lab{}, &equipment.LabEquipment{}, &auditlog.AuditLog{})
	rec := mutation.NewRecorder(auditlog.NewService(auditlog.NewRepository(db)), changefeed.NewLocal())

	labs := []Lab{
		{Name: "Robotics Lab", Type: "Teaching", ResearchArea: "Robotics"},
		{Name: "Bio Lab", Type: "Research", ResearchArea: "Biology"},
	}
	items := []equipment.Equipment{{Name: "Centrifuge"}, {Name: "Microscope"}, {Name: "3D Printer"}}
	if err := db.Create(&labs).Error; err != nil {
		t.Fatalf("seed labs: %v", err)
	}
	if err := db.Create(&items).Error; err != nil {
		t.Fatalf("seed equipment: %v", err)
	}
	return NewService(NewRepository(db), rec), db
}

func TestAssignUpdateRemoveRefetchesLabEquipment(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	res, err := s.AssignEquipment(ctx, admin, 1, AssignInput{EquipmentID: 2}, listquery.Params{})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if res.Data.Quantity != 1 || res.Data.Equipment == nil || res.Data.Equipment.Name != "Microscope" {
		t.Fatalf("assigned = %+v", res.Data)
	}
	res, err = s.AssignEquipment(ctx, admin, 1, AssignInput{EquipmentID: 3, Quantity: 4}, listquery.Params{})
	if err != nil {
		t.Fatalf("assign second: %v", err)
	}
	if res.List.TotalCount != 2 || res.List.Data[1].Equipment == nil || res.List.Data[1].Equipment.Name != "3D Printer" {
		t.Fatalf("list after assign = %+v", res.List)
	}

	res, err = s.UpdateEquipmentQuantity(ctx, admin, 1, 2, QuantityInput{Quantity: 6}, listquery.Params{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.List.Data[0].Quantity != 6 {
		t.Fatalf("quantity not refetched: %+v", res.List.Data)
	}

	res, err = s.RemoveEquipment(ctx, admin, 1, 3, listquery.Params{})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if res.List.TotalCount != 1 || res.List.Data[0].EquipmentID != 2 {
		t.Fatalf("list after remove = %+v", res.List)
	}
}

func TestAssignErrors(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	if _, err := s.AssignEquipment(ctx, admin, 1, AssignInput{EquipmentID: 1}, listquery.Params{}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err := s.AssignEquipment(ctx, admin, 1, AssignInput{EquipmentID: 1}, listquery.Params{})
	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) || conflict.Field != "equipment_id" {
		t.Fatalf("duplicate = %v", err)
	}

	_, err = s.AssignEquipment(ctx, admin, 99, AssignInput{EquipmentID: 1}, listquery.Params{})
	if !errors.Is(err, apperr.ErrNotFound) || !strings.Contains(err.Error(), "lab") {
		t.Fatalf("unknown lab = %v", err)
	}
	_, err = s.AssignEquipment(ctx, admin, 1, AssignInput{EquipmentID: 99}, listquery.Params{})
	if !errors.Is(err, apperr.ErrNotFound) || !strings.Contains(err.Error(), "equipment") {
		t.Fatalf("unknown equipment = %v", err)
	}
	_, err = s.UpdateEquipmentQuantity(ctx, admin, 1, 1, QuantityInput{Quantity: 0}, listquery.Params{})
	if fe, ok := validation.AsFieldErrors(err); !ok || fe["quantity"] == "" {
		t.Fatalf("zero quantity = %v", err)
	}
	_, err = s.RemoveEquipment(ctx, admin, 2, 1, listquery.Params{})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("remove unassigned = %v", err)
	}
}

func TestDeleteLabLeavesNoOrphans(t *testing.T) {
	s, db := setup(t)
	ctx := context.Background()
	for _, eq := range []uint{1, 2} {
		if _, err := s.AssignEquipment(ctx, admin, 1, AssignInput{EquipmentID: eq, Quantity: 2}, listquery.Params{}); err != nil {
			t.Fatalf("assign %d: %v", eq, err)
		}
	}
	if _, err := s.AssignEquipment(ctx, admin, 2, AssignInput{EquipmentID: 1}, listquery.Params{}); err != nil {
		t.Fatalf("assign lab 2: %v", err)
	}

	res, err := s.Delete(ctx, admin, 1, listquery.Params{})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.List.TotalCount != 1 || len(res.Data.Equipment) != 2 {
		t.Fatalf("delete result = %+v", res)
	}

	var orphans int64
	db.Model(&equipment.LabEquipment{}).Where("lab_id = ?", 1).Count(&orphans)
	if orphans != 0 {
		t.Fatalf("orphaned rows = %d", orphans)
	}
	if _, err := s.ListEquipment(ctx, 1, listquery.Params{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("list deleted lab equipment = %v", err)
	}
	page, _ := s.ListEquipment(ctx, 2, listquery.Params{})
	if page.TotalCount != 1 {
		t.Fatalf("lab 2 equipment = %d", page.TotalCount)
	}
}

func TestEquipmentFilterAndDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, _ := setup(t)
	ctx := context.Background()
	if _, err := s.AssignEquipment(ctx, admin, 2, AssignInput{EquipmentID: 1, Quantity: 3}, listquery.Params{}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	page, err := s.ListPublic(ctx, listquery.Params{Filters: map[string]string{"equipment_id": "1"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 1 || page.Data[0].Name != "Bio Lab" || page.PageSize != 9 {
		t.Fatalf("page = %+v", page)
	}

	r := gin.New()
	h := NewHandler(s)
	r.GET("/labs/:id", h.GetLab)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/labs/2", nil))
	var got Lab
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || w.Code != http.StatusOK {
		t.Fatalf("detail = %d %s", w.Code, w.Body.String())
	}
	if len(got.Equipment) != 1 || got.Equipment[0].Equipment.Name != "Centrifuge" || got.Equipment[0].Quantity != 3 {
		t.Fatalf("equipment = %+v", got.Equipment)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/labs/42", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "lab not found") {
		t.Fatalf("missing lab = %d %s", w.Code, w.Body.String())
	}
}
