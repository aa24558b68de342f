// Package mutation carries the bookkeeping every admin write shares: the
// audit entry, the change feed announcement and the response envelope that
// bundles the refreshed list.
package mutation

import (
	"context"
	"log"
	"strings"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/auditlog"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/metrics"
	"github.com/uniresearch/research-portal-backend/middleware"
)

// Kind names a mutable resource: Resource is the plural table-ish name used in
// the change feed and metrics, Label the upper-case audit action prefix.
type Kind struct {
	Resource string
	Label    string
}

// Result is the body every successful mutation returns: the affected record
// plus the caller's list re-fetched with the caller's own paging and filters.
type Result[T any, L any] struct {
	Message string            `json:"message"`
	Data    T                 `json:"data"`
	List    listquery.Page[L] `json:"list"`
}

// Lister is an entity's list operation.
type Lister[L any] func(ctx context.Context, p listquery.Params) (listquery.Page[L], error)

// Done builds the success body, re-running list with the caller's paging and
// filters. An invalid filter in the caller's query string never fails the
// write; it shows up as the list's error instead.
func Done[T any, L any](ctx context.Context, message string, data T, list Lister[L], p listquery.Params) Result[T, L] {
	page, err := list(ctx, p)
	if err != nil {
		page = listquery.Page[L]{Data: []L{}, Page: p.Page, PageSize: p.PageSize, Error: err.Error()}
	}
	return Result[T, L]{Message: message, Data: data, List: page}
}

// Request is who is mutating and from where.
type Request struct {
	Access middleware.AccessContext
	IP     string
}

type Recorder struct {
	Audit auditlog.Service
	Feed  changefeed.Publisher
}

func NewRecorder(audit auditlog.Service, feed changefeed.Publisher) *Recorder {
	return &Recorder{Audit: audit, Feed: feed}
}

// Authorize rejects read-only callers, recording the denied attempt.
func (r *Recorder) Authorize(ctx context.Context, req Request, kind Kind, action string, details map[string]interface{}) error {
	if req.Access.CanWrite() {
		return nil
	}
	if details == nil {
		details = map[string]interface{}{}
	}
	details["error"] = apperr.ErrForbidden.Error()
	r.write(ctx, req, kind, action, nil, details, auditlog.StatusFailure)
	return apperr.ErrForbidden
}

// Record writes the audit entry for a finished mutation and, when it
// succeeded, publishes the change. err is the mutation's own outcome.
func (r *Recorder) Record(ctx context.Context, req Request, kind Kind, action string, id uint, details map[string]interface{}, err error) {
	if details == nil {
		details = map[string]interface{}{}
	}
	var idPtr *uint
	if id != 0 {
		idPtr = &id
	}

	status := auditlog.StatusSuccess
	if err != nil {
		status = auditlog.StatusFailure
		details["error"] = err.Error()
	}
	r.write(ctx, req, kind, action, idPtr, details, status)

	if err != nil || r.Feed == nil {
		return
	}
	if perr := r.Feed.Publish(ctx, changefeed.Change{Resource: kind.Resource, Action: action, ID: id}); perr != nil {
		log.Printf("⚠️ change feed publish failed for %s/%s %d: %v", kind.Resource, action, id, perr)
	}
}

func (r *Recorder) write(ctx context.Context, req Request, kind Kind, action string, id *uint, details map[string]interface{}, status string) {
	metrics.ObserveMutation(kind.Resource, action, status)
	if r.Audit == nil {
		return
	}
	auditAction := kind.Label + "_" + strings.ToUpper(action)
	// audit failures are logged by the audit service and never fail the write
	_ = r.Audit.LogAction(context.WithoutCancel(ctx), req.Access.UserIDPtr(), kind.Resource, id, auditAction, details, req.IP, status)
}
