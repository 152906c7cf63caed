package services

import (
	"testing"
	"time"

	"cartrack-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sunday 2026-10-18 15:00 UTC; the week started Monday 2026-10-12
var testNow = time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)

func reportAt(userID string, at time.Time, counts models.StationCounts, drops int) models.Report {
	r := models.Report{
		ID:              userID + "-" + at.Format(time.RFC3339),
		UserID:          userID,
		StationCounts:   counts,
		ForecastedDrops: drops,
		Status:          models.ReportStatusCompleted,
		EmailDelivery:   models.NewEmailDelivery(false),
		CreatedAt:       at.Unix(),
		UpdatedAt:       at.Unix(),
	}
	r.Recalculate()
	return r
}

func TestDailyBreakdown_SevenBucketsZeroFilled(t *testing.T) {
	counts := models.StationCounts{ReadyLine: 2, VIPLine: 1, BlackTop: 1}
	reports := []models.Report{
		reportAt("u1", testNow.Add(-2*time.Hour), counts, 3),
		reportAt("u2", testNow.Add(-3*time.Hour), counts, 1),
		reportAt("u1", testNow.AddDate(0, 0, -3), counts, 0),
		reportAt("u1", testNow.AddDate(0, 0, -10), counts, 9), // outside the window
	}

	buckets := DailyBreakdown(reports, testNow, DailyWindowDays, time.UTC)
	require.Len(t, buckets, 7)

	assert.Equal(t, "2026-10-12", buckets[0].Date)
	assert.Equal(t, "12/10", buckets[0].DateLabel)
	assert.Equal(t, "Mon", buckets[0].Weekday)
	assert.Equal(t, "2026-10-18", buckets[6].Date)
	assert.Equal(t, "Sun", buckets[6].Weekday)

	for i := 1; i < len(buckets); i++ {
		assert.Less(t, buckets[i-1].Date, buckets[i].Date, "buckets are chronological")
	}

	assert.Equal(t, 8, buckets[6].TotalCleaned)
	assert.Equal(t, 4, buckets[6].ForecastedDrops)
	assert.Equal(t, 2, buckets[6].Reports)
	assert.Equal(t, 2, buckets[6].Users)

	assert.Equal(t, 4, buckets[3].TotalCleaned)
	assert.Equal(t, 1, buckets[3].Users)

	for _, i := range []int{0, 1, 2, 4, 5} {
		assert.Zero(t, buckets[i].TotalCleaned)
		assert.Zero(t, buckets[i].Reports)
	}
}

func TestDailyBreakdown_NoReports(t *testing.T) {
	buckets := DailyBreakdown(nil, testNow, DailyWindowDays, time.UTC)
	require.Len(t, buckets, 7)
	for _, b := range buckets {
		assert.Zero(t, b.TotalCleaned)
		assert.Zero(t, b.ForecastedDrops)
	}
}

func TestDailyBreakdown_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC on the 18th is still the 17th in UTC-5
	reports := []models.Report{reportAt("u1", time.Date(2026, 10, 18, 2, 0, 0, 0, time.UTC), models.StationCounts{GasRun: 3}, 0)}

	buckets := DailyBreakdown(reports, testNow, DailyWindowDays, loc)
	require.Len(t, buckets, 7)
	assert.Equal(t, "2026-10-17", buckets[5].Date)
	assert.Equal(t, 3, buckets[5].TotalCleaned)
	assert.Zero(t, buckets[6].TotalCleaned)
}

func TestWeekOverWeek(t *testing.T) {
	assert.Equal(t, 100.0, WeekOverWeek(5, 0))
	assert.Equal(t, 0.0, WeekOverWeek(0, 0))
	assert.Equal(t, 50.0, WeekOverWeek(15, 10))
	assert.Equal(t, -50.0, WeekOverWeek(5, 10))
	assert.Equal(t, 33.3, WeekOverWeek(4, 3))
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), WeekStart(testNow, time.UTC))

	monday := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), WeekStart(monday, time.UTC))
}

func TestSummarize(t *testing.T) {
	reports := []models.Report{
		reportAt("u1", testNow, models.StationCounts{ReadyLine: 1}, 2),
		reportAt("u1", testNow, models.StationCounts{ReadyLine: 1}, 0),
		reportAt("u1", testNow, models.StationCounts{ReadyLine: 2}, 1),
	}

	summary := Summarize(reports, time.Time{}, time.Time{})
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 4, summary.SumTotalCleaned)
	assert.Equal(t, 3, summary.SumForecastedDrops)
	assert.Equal(t, 1.33, summary.AvgTotalCleaned)

	empty := Summarize(reports, testNow.Add(time.Hour), time.Time{})
	assert.Equal(t, models.Summary{}, empty)
}

func TestRankUsers_StableTies(t *testing.T) {
	users := []models.User{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B"},
		{ID: "c", Name: "C"},
	}
	reports := []models.Report{
		reportAt("a", testNow, models.StationCounts{ReadyLine: 30}, 0),
		reportAt("b", testNow, models.StationCounts{ReadyLine: 20}, 0),
		reportAt("b", testNow, models.StationCounts{VIPLine: 30}, 0),
		reportAt("c", testNow, models.StationCounts{GasRun: 50}, 0),
	}

	ranking := RankUsers(reports, users)
	require.Len(t, ranking, 3)
	assert.Equal(t, "b", ranking[0].UserID)
	assert.Equal(t, "c", ranking[1].UserID)
	assert.Equal(t, "a", ranking[2].UserID)
	assert.Equal(t, 50, ranking[0].TotalCleaned)
	assert.Equal(t, 2, ranking[0].TotalReports)
	assert.Equal(t, 30, ranking[2].TotalCleaned)
}

func TestRankUsers_UserWithoutReports(t *testing.T) {
	users := []models.User{{ID: "idle"}, {ID: "busy"}}
	reports := []models.Report{reportAt("busy", testNow, models.StationCounts{ReadyLine: 1}, 0)}

	ranking := RankUsers(reports, users)
	require.Len(t, ranking, 2)
	assert.Equal(t, "busy", ranking[0].UserID)
	assert.NotNil(t, ranking[0].LastReportAt)
	assert.Equal(t, "idle", ranking[1].UserID)
	assert.Nil(t, ranking[1].LastReportAt)
}

func TestBuildUserDashboard(t *testing.T) {
	lastWeek := testNow.AddDate(0, 0, -7)
	reports := []models.Report{
		reportAt("u1", testNow, models.StationCounts{ReadyLine: 10, VIPLine: 5}, 2),
		reportAt("u1", lastWeek, models.StationCounts{ReadyLine: 10}, 1),
	}
	reports[0].EmailDelivery.BeginAttempt()
	reports[0].EmailDelivery.MarkSent(testNow)

	dashboard := BuildUserDashboard(reports, testNow, time.UTC, DashboardWindow{})

	assert.Equal(t, 2, dashboard.Count)
	assert.Equal(t, 25, dashboard.SumTotalCleaned)
	assert.Equal(t, 15, dashboard.ThisWeekTotal)
	assert.Equal(t, 10, dashboard.LastWeekTotal)
	assert.Equal(t, 50.0, dashboard.PerformancePct)
	assert.Len(t, dashboard.Daily, 7)
	assert.Equal(t, 2, dashboard.Stats.TotalReports)
	assert.Equal(t, 1, dashboard.Stats.ReportsSent)
	assert.Equal(t, 1, dashboard.Stats.ReportsToday)
	assert.Equal(t, 2, dashboard.Stats.ReportsThisMonth)
	require.Len(t, dashboard.RecentReports, 2)
	assert.Equal(t, reports[0].ID, dashboard.RecentReports[0].ID)
}

func TestBuildAdminDashboard(t *testing.T) {
	users := []models.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}}
	reports := []models.Report{
		reportAt("u1", testNow, models.StationCounts{ReadyLine: 3}, 0),
		reportAt("u2", testNow, models.StationCounts{ReadyLine: 7}, 0),
		reportAt("u2", testNow.AddDate(0, -1, 0), models.StationCounts{ReadyLine: 1}, 0),
	}
	reports[1].EmailDelivery.BeginAttempt()
	reports[1].EmailDelivery.MarkFailed("timeout")

	dashboard := BuildAdminDashboard(reports, users, testNow, time.UTC, DashboardWindow{})

	assert.Equal(t, 3, dashboard.General.TotalUsers)
	assert.Equal(t, 3, dashboard.General.TotalReports)
	assert.Equal(t, 2, dashboard.General.ReportsThisMonth)
	assert.Equal(t, 2, dashboard.General.ActiveUsersToday)
	assert.Equal(t, map[models.DeliveryStatus]int{
		models.DeliveryStatusNotSent: 2,
		models.DeliveryStatusSent:    0,
		models.DeliveryStatusError:   1,
	}, dashboard.EmailStatus)
	require.Len(t, dashboard.Users, 3)
	assert.Equal(t, "u2", dashboard.Users[0].UserID)
	assert.Equal(t, "u3", dashboard.Users[2].UserID)
	assert.Equal(t, 100.0, dashboard.PerformancePct)
}
