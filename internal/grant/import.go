package grant

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/uniresearch/research-portal-backend/internal/spreadsheet"
	"github.com/uniresearch/research-portal-backend/internal/validation"
)

// RowError is an import row that failed validation.
type RowError struct {
	Row       int                    `json:"row"`
	ProjectID string                 `json:"project_id,omitempty"`
	Errors    validation.FieldErrors `json:"errors"`
}

// ImportReport summarises a spreadsheet import.
type ImportReport struct {
	File    string     `json:"file"`
	FileURL string     `json:"file_url"`
	Total   int        `json:"total"`
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Failed  []RowError `json:"failed"`
}

// column aliases accepted in the header row, compared after
// spreadsheet.NormalizeHeader
var aliases = map[string][]string{
	"project_id":                {"project_id", "project id", "project no", "project number", "project code"},
	"title":                     {"title", "project title", "project name"},
	"start_date":                {"start_date", "start date", "start"},
	"end_date":                  {"end_date", "end date", "end"},
	"cost_center":               {"cost_center", "cost center", "cost centre"},
	"project_leader_name":       {"project_leader_name", "project leader", "project leader name", "pi", "pi name"},
	"project_leader_email":      {"project_leader_email", "project leader email", "pi email", "email"},
	"project_leader_department": {"project_leader_department", "department", "project leader department"},
	"research_alliance":         {"research_alliance", "research alliance", "alliance"},
	"research_group":            {"research_group", "research group", "group"},
	"type":                      {"type", "grant type", "project type"},
	"status":                    {"status", "project status"},
	"sponsor_name":              {"sponsor_name", "sponsor", "sponsor name", "funder"},
	"sponsor_category":          {"sponsor_category", "sponsor category", "sponsor type"},
	"sub_sponsor":               {"sub_sponsor", "sub sponsor", "subsponsor"},
	"approved_amount":           {"approved_amount", "approved amount", "amount", "budget"},
}

// inputFromRecord maps one sheet row onto a GrantInput. Unparsable amounts
// and dates are reported as field errors by Apply.
func inputFromRecord(rec spreadsheet.Record) (GrantInput, validation.FieldErrors) {
	get := func(field string) string { return rec.Get(aliases[field]...) }
	errs := validation.FieldErrors{}

	in := GrantInput{
		ProjectID:               get("project_id"),
		Title:                   get("title"),
		StartDate:               normalizeDate(get("start_date")),
		EndDate:                 normalizeDate(get("end_date")),
		CostCenter:              get("cost_center"),
		ProjectLeaderName:       get("project_leader_name"),
		ProjectLeaderEmail:      get("project_leader_email"),
		ProjectLeaderDepartment: get("project_leader_department"),
		ResearchAlliance:        get("research_alliance"),
		ResearchGroup:           get("research_group"),
		Type:                    get("type"),
		Status:                  get("status"),
		SponsorName:             get("sponsor_name"),
		SponsorCategory:         get("sponsor_category"),
		SubSponsor:              get("sub_sponsor"),
	}
	if raw := get("approved_amount"); raw != "" {
		amount, err := parseAmount(raw)
		if err != nil {
			errs.Add("approved_amount", "must be a number")
		}
		in.ApprovedAmount = amount
	}
	return in, errs
}

// parseAmount accepts "1,000.50", "$ 1000" and "EUR 1000".
func parseAmount(raw string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)
	return strconv.ParseFloat(cleaned, 64)
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "02.01.2006", "01/02/2006", "1/2/2006", "1/2/06", "01-02-06", "2006-01-02 15:04:05"}

// normalizeDate turns the date spellings spreadsheets produce (including
// excel serial numbers) into YYYY-MM-DD. Unknown input is returned as is so
// validation reports it.
func normalizeDate(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dateLayout)
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format(dateLayout)
		}
	}
	return raw
}
