package models

import (
	"fmt"
	"strings"
	"time"
)

// ReportStatus is the lifecycle state of a report
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"     // Saved, not final
	ReportStatusCompleted ReportStatus = "completed" // Final counts, not emailed yet
	ReportStatusSent      ReportStatus = "sent"      // Emailed successfully at least once
	ReportStatusCancelled ReportStatus = "cancelled" // Withdrawn by the owner
)

const (
	serviceDateLayout = "2006-01-02"
	clockLayout       = "15:04"
)

// ValidationError is returned for bad client input; handlers map it to 400
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StationCounts holds the vehicle counts for the eight work stations
type StationCounts struct {
	ReadyLine     int `json:"ready_line" db:"ready_line"`
	VIPLine       int `json:"vip_line" db:"vip_line"`
	OverflowKiosk int `json:"overflow_kiosk" db:"overflow_kiosk"`
	Overflow2     int `json:"overflow_2" db:"overflow_2"`
	BlackTop      int `json:"black_top" db:"black_top"`
	ReturnLine    int `json:"return_line" db:"return_line"`
	Mecanico      int `json:"mecanico" db:"mecanico"`
	GasRun        int `json:"gas_run" db:"gas_run"`
}

// StationField pairs a station's column name with its display label and count
type StationField struct {
	Name  string
	Label string
	Count int
}

// Fields lists the stations in display order
func (c StationCounts) Fields() []StationField {
	return []StationField{
		{"ready_line", "Ready Line", c.ReadyLine},
		{"vip_line", "VIP Line", c.VIPLine},
		{"overflow_kiosk", "Overflow Kiosk", c.OverflowKiosk},
		{"overflow_2", "Overflow 2", c.Overflow2},
		{"black_top", "Black Top", c.BlackTop},
		{"return_line", "Return Line", c.ReturnLine},
		{"mecanico", "Mecanico", c.Mecanico},
		{"gas_run", "Gas Run", c.GasRun},
	}
}

// Total returns the exact sum of all station counts
func (c StationCounts) Total() int {
	total := 0
	for _, f := range c.Fields() {
		total += f.Count
	}
	return total
}

// MaxCount bounds each station count and forecasted_drops. Eight stations at
// the limit still fit the INT total_cleaned column.
const MaxCount = 100000

// Validate rejects negative or out-of-range counts. Counts are never clamped.
func (c StationCounts) Validate() error {
	for _, f := range c.Fields() {
		if err := validateCount(f.Name, f.Count); err != nil {
			return err
		}
	}
	return nil
}

func validateCount(field string, n int) error {
	if n < 0 {
		return &ValidationError{Field: field, Message: "must be a non-negative integer"}
	}
	if n > MaxCount {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must not exceed %d", MaxCount)}
	}
	return nil
}

// Report is a single submission of station counts for a day/shift
type Report struct {
	ID        string  `db:"id"`
	UserID    string  `db:"user_id"`
	CompanyID *string `db:"company_id"`

	StationCounts
	TotalCleaned    int `db:"total_cleaned"`
	ForecastedDrops int `db:"forecasted_drops"`

	ServiceDate *string `db:"service_date"` // YYYY-MM-DD
	StartTime   *string `db:"start_time"`   // HH:MM
	EndTime     *string `db:"end_time"`     // HH:MM
	Notes       *string `db:"notes"`

	Status ReportStatus `db:"status"`

	EmailDelivery

	CreatedAt int64 `db:"created_at"` // Unix timestamp
	UpdatedAt int64 `db:"updated_at"` // Unix timestamp
}

// Recalculate derives total_cleaned from the station counts.
// Called by every persist path; a client-supplied total is never trusted.
func (r *Report) Recalculate() {
	r.TotalCleaned = r.StationCounts.Total()
}

// Validate checks counts, drops, status and the service date/time window
func (r *Report) Validate() error {
	if err := r.StationCounts.Validate(); err != nil {
		return err
	}
	if err := validateCount("forecasted_drops", r.ForecastedDrops); err != nil {
		return err
	}
	switch r.Status {
	case ReportStatusDraft, ReportStatusCompleted, ReportStatusSent, ReportStatusCancelled:
	default:
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", r.Status)}
	}
	if r.ServiceDate != nil {
		if _, err := time.Parse(serviceDateLayout, *r.ServiceDate); err != nil {
			return &ValidationError{Field: "service_date", Message: "must be formatted as YYYY-MM-DD"}
		}
	}
	if r.StartTime != nil {
		if _, err := time.Parse(clockLayout, *r.StartTime); err != nil {
			return &ValidationError{Field: "start_time", Message: "must be formatted as HH:MM"}
		}
	}
	if r.EndTime != nil {
		if _, err := time.Parse(clockLayout, *r.EndTime); err != nil {
			return &ValidationError{Field: "end_time", Message: "must be formatted as HH:MM"}
		}
	}
	return nil
}

// DurationMinutes returns end - start in minutes when both times are set and
// end is not before start; otherwise nil
func (r *Report) DurationMinutes() *int {
	if r.StartTime == nil || r.EndTime == nil {
		return nil
	}
	start, err := time.Parse(clockLayout, *r.StartTime)
	if err != nil {
		return nil
	}
	end, err := time.Parse(clockLayout, *r.EndTime)
	if err != nil || end.Before(start) {
		return nil
	}
	minutes := int(end.Sub(start) / time.Minute)
	return &minutes
}

// CreatedIn returns the creation time in the given location
func (r *Report) CreatedIn(loc *time.Location) time.Time {
	return time.Unix(r.CreatedAt, 0).In(loc)
}

// ApplyStatus handles the client-settable lifecycle changes (draft <-> completed).
// sent and cancelled are reached only through dispatch and cancel.
func (r *Report) ApplyStatus(next ReportStatus) error {
	if next == r.Status {
		return nil
	}
	if next != ReportStatusDraft && next != ReportStatusCompleted {
		return &ValidationError{Field: "status", Message: "only draft or completed can be set directly"}
	}
	if r.Status != ReportStatusDraft && r.Status != ReportStatusCompleted {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("cannot change status of a %s report", r.Status)}
	}
	r.Status = next
	return nil
}

// CanDispatch reports whether the lifecycle state allows emailing the report.
// Delivery state (CanResend) is checked separately.
func (r *Report) CanDispatch() error {
	switch r.Status {
	case ReportStatusDraft:
		return &ValidationError{Field: "status", Message: "draft reports cannot be emailed"}
	case ReportStatusCancelled:
		return &ValidationError{Field: "status", Message: "cancelled reports cannot be emailed"}
	}
	return nil
}

// ReportRequest is the request body for POST /api/reports.
// Absent counts are zero; total_cleaned is not accepted from clients.
type ReportRequest struct {
	StationCounts
	ForecastedDrops int     `json:"forecasted_drops"`
	ServiceDate     *string `json:"service_date,omitempty"`
	StartTime       *string `json:"start_time,omitempty"`
	EndTime         *string `json:"end_time,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	CompanyID       *string `json:"company_id,omitempty"`
	Status          string  `json:"status,omitempty"` // "draft" or "completed" (default)
	SendEmail       bool    `json:"send_email"`
}

// ToReport builds an unsaved report from the request
func (req *ReportRequest) ToReport(userID string) (*Report, error) {
	status := ReportStatusCompleted
	switch strings.TrimSpace(req.Status) {
	case "", string(ReportStatusCompleted):
	case string(ReportStatusDraft):
		status = ReportStatusDraft
	default:
		return nil, &ValidationError{Field: "status", Message: "must be draft or completed"}
	}

	report := &Report{
		UserID:          userID,
		CompanyID:       trimmedOrNil(req.CompanyID),
		StationCounts:   req.StationCounts,
		ForecastedDrops: req.ForecastedDrops,
		ServiceDate:     trimmedOrNil(req.ServiceDate),
		StartTime:       trimmedOrNil(req.StartTime),
		EndTime:         trimmedOrNil(req.EndTime),
		Notes:           trimmedOrNil(req.Notes),
		Status:          status,
		EmailDelivery:   NewEmailDelivery(req.SendEmail),
	}
	report.Recalculate()

	if err := report.Validate(); err != nil {
		return nil, err
	}
	if req.SendEmail {
		if err := report.CanDispatch(); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// UpdateReportRequest is the request body for PATCH /api/reports/:id
type UpdateReportRequest struct {
	ReadyLine       *int    `json:"ready_line,omitempty"`
	VIPLine         *int    `json:"vip_line,omitempty"`
	OverflowKiosk   *int    `json:"overflow_kiosk,omitempty"`
	Overflow2       *int    `json:"overflow_2,omitempty"`
	BlackTop        *int    `json:"black_top,omitempty"`
	ReturnLine      *int    `json:"return_line,omitempty"`
	Mecanico        *int    `json:"mecanico,omitempty"`
	GasRun          *int    `json:"gas_run,omitempty"`
	ForecastedDrops *int    `json:"forecasted_drops,omitempty"`
	ServiceDate     *string `json:"service_date,omitempty"`
	StartTime       *string `json:"start_time,omitempty"`
	EndTime         *string `json:"end_time,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	Status          *string `json:"status,omitempty"`
}

// Apply merges the patch into the report and recalculates the total
func (req *UpdateReportRequest) Apply(r *Report) error {
	if r.Status == ReportStatusCancelled {
		return &ValidationError{Field: "status", Message: "cancelled reports cannot be edited"}
	}

	setInt(&r.ReadyLine, req.ReadyLine)
	setInt(&r.VIPLine, req.VIPLine)
	setInt(&r.OverflowKiosk, req.OverflowKiosk)
	setInt(&r.Overflow2, req.Overflow2)
	setInt(&r.BlackTop, req.BlackTop)
	setInt(&r.ReturnLine, req.ReturnLine)
	setInt(&r.Mecanico, req.Mecanico)
	setInt(&r.GasRun, req.GasRun)
	setInt(&r.ForecastedDrops, req.ForecastedDrops)

	// An empty string clears optional text fields
	if req.ServiceDate != nil {
		r.ServiceDate = trimmedOrNil(req.ServiceDate)
	}
	if req.StartTime != nil {
		r.StartTime = trimmedOrNil(req.StartTime)
	}
	if req.EndTime != nil {
		r.EndTime = trimmedOrNil(req.EndTime)
	}
	if req.Notes != nil {
		r.Notes = trimmedOrNil(req.Notes)
	}
	if req.Status != nil {
		if err := r.ApplyStatus(ReportStatus(strings.TrimSpace(*req.Status))); err != nil {
			return err
		}
	}

	r.Recalculate()
	return r.Validate()
}

// ReportResponse is what we send to the client with ISO timestamps
type ReportResponse struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	CompanyID *string `json:"company_id"`
	StationCounts
	TotalCleaned    int              `json:"total_cleaned"`
	ForecastedDrops int              `json:"forecasted_drops"`
	ServiceDate     *string          `json:"service_date,omitempty"`
	StartTime       *string          `json:"start_time,omitempty"`
	EndTime         *string          `json:"end_time,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	Status          ReportStatus     `json:"status"`
	Delivery        DeliveryResponse `json:"delivery"`
	CanResend       bool             `json:"can_resend"`
	CreatedAtIso    string           `json:"created_at"`
	UpdatedAtIso    string           `json:"updated_at"`
}

// ToReportResponse converts a Report to ReportResponse
func (r *Report) ToReportResponse() ReportResponse {
	return ReportResponse{
		ID:              r.ID,
		UserID:          r.UserID,
		CompanyID:       r.CompanyID,
		StationCounts:   r.StationCounts,
		TotalCleaned:    r.TotalCleaned,
		ForecastedDrops: r.ForecastedDrops,
		ServiceDate:     r.ServiceDate,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationMinutes: r.DurationMinutes(),
		Notes:           r.Notes,
		Status:          r.Status,
		Delivery:        r.EmailDelivery.ToDeliveryResponse(),
		CanResend:       r.CanResend(),
		CreatedAtIso:    time.Unix(r.CreatedAt, 0).UTC().Format(time.RFC3339),
		UpdatedAtIso:    time.Unix(r.UpdatedAt, 0).UTC().Format(time.RFC3339),
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
