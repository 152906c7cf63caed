package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestStationCounts_Total(t *testing.T) {
	counts := StationCounts{ReadyLine: 2, VIPLine: 1, BlackTop: 1}
	assert.Equal(t, 4, counts.Total())

	all := StationCounts{1, 2, 3, 4, 5, 6, 7, 8}
	assert.Equal(t, 36, all.Total())

	assert.Equal(t, 0, StationCounts{}.Total())
}

func TestStationCounts_ValidateRejectsNegative(t *testing.T) {
	err := StationCounts{ReadyLine: 3, GasRun: -1}.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "gas_run", verr.Field)

	assert.NoError(t, StationCounts{}.Validate())
}

func TestStationCounts_ValidateUpperBound(t *testing.T) {
	assert.NoError(t, StationCounts{ReadyLine: MaxCount, GasRun: MaxCount}.Validate())

	tests := []struct {
		name   string
		counts StationCounts
		field  string
	}{
		{"just over the limit", StationCounts{VIPLine: MaxCount + 1}, "vip_line"},
		{"beyond the INT column", StationCounts{ReadyLine: 3_000_000_000}, "ready_line"},
		{"sum would overflow", StationCounts{ReadyLine: math.MaxInt64, VIPLine: 1}, "ready_line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *ValidationError
			require.ErrorAs(t, tt.counts.Validate(), &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Contains(t, verr.Message, "must not exceed")
		})
	}
}

func TestReport_RecalculateIsIdempotent(t *testing.T) {
	r := &Report{StationCounts: StationCounts{ReadyLine: 5, Mecanico: 2}, TotalCleaned: 999}

	r.Recalculate()
	assert.Equal(t, 7, r.TotalCleaned)

	r.Recalculate()
	assert.Equal(t, 7, r.TotalCleaned)

	r.ReturnLine = 3
	r.Recalculate()
	assert.Equal(t, 10, r.TotalCleaned)
}

func TestReportRequest_ToReport(t *testing.T) {
	req := ReportRequest{
		StationCounts:   StationCounts{ReadyLine: 2, VIPLine: 1, BlackTop: 1},
		ForecastedDrops: 12,
		ServiceDate:     strPtr("2026-10-19"),
		StartTime:       strPtr("08:00"),
		EndTime:         strPtr("09:30"),
		Notes:           strPtr("  "),
		SendEmail:       true,
	}

	report, err := req.ToReport("user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", report.UserID)
	assert.Equal(t, 4, report.TotalCleaned)
	assert.Equal(t, 12, report.ForecastedDrops)
	assert.Equal(t, ReportStatusCompleted, report.Status)
	assert.Nil(t, report.Notes)
	assert.Nil(t, report.CompanyID)
	assert.True(t, report.SendRequested)
	assert.Equal(t, DeliveryStatusNotSent, report.EmailDelivery.Status)
	assert.Equal(t, 0, report.Attempts)
	require.NotNil(t, report.DurationMinutes())
	assert.Equal(t, 90, *report.DurationMinutes())
}

func TestReportRequest_ToReportValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   ReportRequest
		field string
	}{
		{"negative count", ReportRequest{StationCounts: StationCounts{VIPLine: -2}}, "vip_line"},
		{"negative drops", ReportRequest{ForecastedDrops: -1}, "forecasted_drops"},
		{"too many drops", ReportRequest{ForecastedDrops: MaxCount + 1}, "forecasted_drops"},
		{"bad date", ReportRequest{ServiceDate: strPtr("19/10/2026")}, "service_date"},
		{"bad start", ReportRequest{StartTime: strPtr("8am")}, "start_time"},
		{"bad status", ReportRequest{Status: "sent"}, "status"},
		{"draft with send", ReportRequest{Status: "draft", SendEmail: true}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.ToReport("user-1")
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestReport_DurationMinutes(t *testing.T) {
	r := &Report{}
	assert.Nil(t, r.DurationMinutes())

	r.StartTime = strPtr("10:00")
	assert.Nil(t, r.DurationMinutes())

	r.EndTime = strPtr("09:00")
	assert.Nil(t, r.DurationMinutes(), "end before start has no duration")

	r.EndTime = strPtr("10:45")
	require.NotNil(t, r.DurationMinutes())
	assert.Equal(t, 45, *r.DurationMinutes())
}

func TestUpdateReportRequest_Apply(t *testing.T) {
	r := &Report{
		StationCounts:   StationCounts{ReadyLine: 2, VIPLine: 1},
		ForecastedDrops: 3,
		Notes:           strPtr("old"),
		Status:          ReportStatusDraft,
		EmailDelivery:   NewEmailDelivery(false),
	}
	r.Recalculate()

	req := UpdateReportRequest{
		ReadyLine: intPtr(5),
		GasRun:    intPtr(4),
		Notes:     strPtr(""),
		Status:    strPtr("completed"),
	}
	require.NoError(t, req.Apply(r))

	assert.Equal(t, 10, r.TotalCleaned)
	assert.Equal(t, 3, r.ForecastedDrops)
	assert.Nil(t, r.Notes)
	assert.Equal(t, ReportStatusCompleted, r.Status)
}

func TestUpdateReportRequest_ApplyRejects(t *testing.T) {
	cancelled := &Report{Status: ReportStatusCancelled, EmailDelivery: NewEmailDelivery(false)}
	assert.Error(t, (&UpdateReportRequest{ReadyLine: intPtr(1)}).Apply(cancelled))

	sent := &Report{Status: ReportStatusSent, EmailDelivery: NewEmailDelivery(true)}
	assert.Error(t, (&UpdateReportRequest{Status: strPtr("draft")}).Apply(sent))

	completed := &Report{Status: ReportStatusCompleted, EmailDelivery: NewEmailDelivery(false)}
	assert.Error(t, (&UpdateReportRequest{Mecanico: intPtr(-3)}).Apply(completed))
}

func TestReport_CanDispatch(t *testing.T) {
	assert.Error(t, (&Report{Status: ReportStatusDraft}).CanDispatch())
	assert.Error(t, (&Report{Status: ReportStatusCancelled}).CanDispatch())
	assert.NoError(t, (&Report{Status: ReportStatusCompleted}).CanDispatch())
	assert.NoError(t, (&Report{Status: ReportStatusSent}).CanDispatch())
}

func TestReport_ToReportResponse(t *testing.T) {
	r := &Report{
		ID:            "r-1",
		UserID:        "u-1",
		StationCounts: StationCounts{ReadyLine: 1},
		Status:        ReportStatusCompleted,
		EmailDelivery: NewEmailDelivery(false),
		CreatedAt:     1760832000,
		UpdatedAt:     1760832000,
	}
	r.Recalculate()

	resp := r.ToReportResponse()
	assert.Equal(t, 1, resp.TotalCleaned)
	assert.True(t, resp.CanResend)
	assert.Equal(t, "2025-10-19T00:00:00Z", resp.CreatedAtIso)
	assert.Nil(t, resp.Delivery.SentAtIso)
}
