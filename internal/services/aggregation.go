package services

import (
	"sort"
	"time"

	"cartrack-backend/internal/models"

	"github.com/shopspring/decimal"
)

// DailyWindowDays is the length of the trailing per-day breakdown
const DailyWindowDays = 7

// RecentReportsLimit is the number of reports shown on the user dashboard
const RecentReportsLimit = 5

const dayLayout = "2006-01-02"

// startOfDay returns local midnight of t in loc
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// WeekStart returns local midnight of the Monday starting t's week
func WeekStart(t time.Time, loc *time.Location) time.Time {
	day := startOfDay(t, loc)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

func monthStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// inRange reports whether the report was created in [from, to).
// A zero bound is open.
func inRange(r *models.Report, from, to time.Time) bool {
	created := time.Unix(r.CreatedAt, 0)
	if !from.IsZero() && created.Before(from) {
		return false
	}
	if !to.IsZero() && !created.Before(to) {
		return false
	}
	return true
}

// Summarize aggregates the reports created in [from, to). Zero bounds are open.
func Summarize(reports []models.Report, from, to time.Time) models.Summary {
	var summary models.Summary
	for i := range reports {
		if !inRange(&reports[i], from, to) {
			continue
		}
		summary.Count++
		summary.SumTotalCleaned += reports[i].TotalCleaned
		summary.SumForecastedDrops += reports[i].ForecastedDrops
	}
	if summary.Count > 0 {
		summary.AvgTotalCleaned = decimal.NewFromInt(int64(summary.SumTotalCleaned)).
			Div(decimal.NewFromInt(int64(summary.Count))).
			Round(2).
			InexactFloat64()
	}
	return summary
}

// SumTotalCleaned sums total_cleaned over the reports created in [from, to)
func SumTotalCleaned(reports []models.Report, from, to time.Time) int {
	return Summarize(reports, from, to).SumTotalCleaned
}

// DailyBreakdown returns exactly days buckets ending on today's date, oldest
// first. Days without reports are zero-filled.
func DailyBreakdown(reports []models.Report, today time.Time, days int, loc *time.Location) []models.DailyBucket {
	if days <= 0 {
		return []models.DailyBucket{}
	}

	first := startOfDay(today, loc).AddDate(0, 0, -(days - 1))
	buckets := make([]models.DailyBucket, days)
	index := make(map[string]int, days)
	users := make([]map[string]struct{}, days)

	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		key := day.Format(dayLayout)
		buckets[i] = models.DailyBucket{
			Date:      key,
			DateLabel: day.Format("02/01"),
			Weekday:   day.Format("Mon"),
		}
		index[key] = i
		users[i] = map[string]struct{}{}
	}

	for i := range reports {
		key := reports[i].CreatedIn(loc).Format(dayLayout)
		pos, ok := index[key]
		if !ok {
			continue
		}
		buckets[pos].TotalCleaned += reports[i].TotalCleaned
		buckets[pos].ForecastedDrops += reports[i].ForecastedDrops
		buckets[pos].Reports++
		users[pos][reports[i].UserID] = struct{}{}
	}

	for i := range buckets {
		buckets[i].Users = len(users[i])
	}
	return buckets
}

// WeekOverWeek is the percentage change from prior to current, rounded to
// one decimal. With no prior volume it is 100 when there is current volume
// and 0 otherwise.
func WeekOverWeek(current, prior int) float64 {
	if prior == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return decimal.NewFromInt(int64(current - prior)).
		Div(decimal.NewFromInt(int64(prior))).
		Mul(decimal.NewFromInt(100)).
		Round(1).
		InexactFloat64()
}

// weekTotals returns this week's total (Monday onwards, open-ended) and last
// week's total (previous Monday through Sunday)
func weekTotals(reports []models.Report, now time.Time, loc *time.Location) (int, int) {
	thisWeek := WeekStart(now, loc)
	lastWeek := thisWeek.AddDate(0, 0, -7)
	return SumTotalCleaned(reports, thisWeek, time.Time{}), SumTotalCleaned(reports, lastWeek, thisWeek)
}

// RankUsers builds one row per user and sorts by total_cleaned descending.
// Ties keep the order of the users slice.
func RankUsers(reports []models.Report, users []models.User) []models.UserRanking {
	type acc struct {
		reports, cleaned, sent int
		last                   int64
	}
	byUser := make(map[string]*acc, len(users))
	for _, u := range users {
		byUser[u.ID] = &acc{}
	}
	for i := range reports {
		a, ok := byUser[reports[i].UserID]
		if !ok {
			continue
		}
		a.reports++
		a.cleaned += reports[i].TotalCleaned
		if reports[i].EmailDelivery.Status == models.DeliveryStatusSent {
			a.sent++
		}
		if reports[i].CreatedAt > a.last {
			a.last = reports[i].CreatedAt
		}
	}

	ranking := make([]models.UserRanking, 0, len(users))
	for _, u := range users {
		a := byUser[u.ID]
		row := models.UserRanking{
			UserID:       u.ID,
			Name:         u.Name,
			Email:        u.Email,
			TotalReports: a.reports,
			TotalCleaned: a.cleaned,
			ReportsSent:  a.sent,
		}
		if a.reports > 0 {
			iso := time.Unix(a.last, 0).UTC().Format(time.RFC3339)
			row.LastReportAt = &iso
		}
		ranking = append(ranking, row)
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].TotalCleaned > ranking[j].TotalCleaned
	})
	return ranking
}

// DashboardWindow optionally narrows the summary of a dashboard
type DashboardWindow struct {
	From time.Time
	To   time.Time
}

// BuildUserDashboard aggregates one user's reports. reports must already be
// scoped to the user (and company, when one is active).
func BuildUserDashboard(reports []models.Report, now time.Time, loc *time.Location, window DashboardWindow) models.UserDashboard {
	today := startOfDay(now, loc)
	tomorrow := today.AddDate(0, 0, 1)
	thisWeek, lastWeek := weekTotals(reports, now, loc)

	dashboard := models.UserDashboard{
		Summary:        Summarize(reports, window.From, window.To),
		Daily:          DailyBreakdown(reports, now, DailyWindowDays, loc),
		PerformancePct: WeekOverWeek(thisWeek, lastWeek),
		ThisWeekTotal:  thisWeek,
		LastWeekTotal:  lastWeek,
		Stats: models.UserStats{
			TotalReports:     len(reports),
			ReportsThisMonth: Summarize(reports, monthStart(now, loc), time.Time{}).Count,
			ReportsSent:      countDeliveryStatus(reports)[models.DeliveryStatusSent],
			ReportsToday:     Summarize(reports, today, tomorrow).Count,
		},
	}

	recent := newestFirst(reports)
	if len(recent) > RecentReportsLimit {
		recent = recent[:RecentReportsLimit]
	}
	dashboard.RecentReports = make([]models.ReportResponse, 0, len(recent))
	for i := range recent {
		dashboard.RecentReports = append(dashboard.RecentReports, recent[i].ToReportResponse())
	}
	return dashboard
}

// BuildAdminDashboard aggregates every report. users are the ranked accounts
// in their listing order.
func BuildAdminDashboard(reports []models.Report, users []models.User, now time.Time, loc *time.Location, window DashboardWindow) models.AdminDashboard {
	today := startOfDay(now, loc)
	tomorrow := today.AddDate(0, 0, 1)
	thisWeek, lastWeek := weekTotals(reports, now, loc)

	activeToday := map[string]struct{}{}
	for i := range reports {
		if inRange(&reports[i], today, tomorrow) {
			activeToday[reports[i].UserID] = struct{}{}
		}
	}

	return models.AdminDashboard{
		Summary:        Summarize(reports, window.From, window.To),
		Daily:          DailyBreakdown(reports, now, DailyWindowDays, loc),
		PerformancePct: WeekOverWeek(thisWeek, lastWeek),
		ThisWeekTotal:  thisWeek,
		LastWeekTotal:  lastWeek,
		General: models.GeneralStats{
			TotalUsers:       len(users),
			TotalReports:     len(reports),
			ReportsThisMonth: Summarize(reports, monthStart(now, loc), time.Time{}).Count,
			ActiveUsersToday: len(activeToday),
		},
		Users:       RankUsers(reports, users),
		EmailStatus: countDeliveryStatus(reports),
	}
}

// countDeliveryStatus always carries every status, zero or not
func countDeliveryStatus(reports []models.Report) map[models.DeliveryStatus]int {
	counts := make(map[models.DeliveryStatus]int, len(models.DeliveryStatuses))
	for _, s := range models.DeliveryStatuses {
		counts[s] = 0
	}
	for i := range reports {
		counts[reports[i].EmailDelivery.Status]++
	}
	return counts
}

func newestFirst(reports []models.Report) []models.Report {
	sorted := make([]models.Report, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt > sorted[j].CreatedAt
	})
	return sorted
}
