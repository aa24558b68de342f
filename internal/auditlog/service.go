package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/spreadsheet"
)

type Service interface {
	LogAction(ctx context.Context, userID *uint, resource string, resourceID *uint, action string, details map[string]interface{}, ip string, status string) error
	GetAuditLogs(ctx context.Context, p listquery.Params) (listquery.Page[AuditLog], error)
	GetAuditLogByID(ctx context.Context, id uint) (*AuditLog, error)
	GetStats(ctx context.Context, since time.Time) (*Stats, error)
	ExportTable(ctx context.Context, p listquery.Params) (spreadsheet.Table, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// LogAction creates a new audit log entry. A failure to write the entry is
// logged and returned but never blocks the audited operation.
func (s *service) LogAction(ctx context.Context, userID *uint, resource string, resourceID *uint, action string, details map[string]interface{}, ip string, status string) error {
	if details == nil {
		details = make(map[string]interface{})
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	entry := &AuditLog{
		UserID:     userID,
		Resource:   resource,
		ResourceID: resourceID,
		Action:     action,
		Details:    datatypes.JSON(detailsJSON),
		IPAddress:  ip,
		Status:     status,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		log.Printf("⚠️ audit log write failed (%s %s): %v", action, status, err)
		return err
	}
	return nil
}

// GetAuditLogs returns one page of audit logs. Invalid filters come back as
// validation.FieldErrors; store failures yield an empty page with Error set.
func (s *service) GetAuditLogs(ctx context.Context, p listquery.Params) (listquery.Page[AuditLog], error) {
	p = ListSpec.Normalize(p)
	b, err := ListSpec.Build(p)
	if err != nil {
		return listquery.Page[AuditLog]{}, err
	}
	return s.repo.List(ctx, b, p), nil
}

// GetAuditLogByID retrieves a specific audit log by ID
func (s *service) GetAuditLogByID(ctx context.Context, id uint) (*AuditLog, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("audit log")
		}
		return nil, fmt.Errorf("get audit log %d: %w", id, err)
	}
	return entry, nil
}

func (s *service) GetStats(ctx context.Context, since time.Time) (*Stats, error) {
	return s.repo.Stats(ctx, since)
}

var exportHeaders = []string{"Time", "User", "Action", "Resource", "Resource ID", "Status", "IP Address", "Details"}

// ExportTable renders every log entry matching the list filters, newest first.
func (s *service) ExportTable(ctx context.Context, p listquery.Params) (spreadsheet.Table, error) {
	b, err := ListSpec.Build(ListSpec.Normalize(p))
	if err != nil {
		return spreadsheet.Table{}, err
	}
	rows, err := s.repo.All(ctx, b)
	if err != nil {
		return spreadsheet.Table{}, fmt.Errorf("export audit logs: %w", err)
	}

	t := spreadsheet.Table{Sheet: "Audit Logs", Headers: exportHeaders, Rows: make([][]string, 0, len(rows))}
	for _, e := range rows {
		user := e.UserName
		if user == "" && e.UserID != nil {
			user = "#" + strconv.FormatUint(uint64(*e.UserID), 10)
		}
		resourceID := ""
		if e.ResourceID != nil {
			resourceID = strconv.FormatUint(uint64(*e.ResourceID), 10)
		}
		t.Rows = append(t.Rows, []string{
			e.CreatedAt.UTC().Format("2006-01-02 15:04:05"), user, e.Action, e.Resource, resourceID,
			e.Status, e.IPAddress, string(e.Details),
		})
	}
	return t, nil
}
