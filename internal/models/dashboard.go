package models

// Summary is the common aggregate over a set of reports
type Summary struct {
	Count              int     `json:"count"`
	SumTotalCleaned    int     `json:"sum_total_cleaned"`
	SumForecastedDrops int     `json:"sum_forecasted_drops"`
	AvgTotalCleaned    float64 `json:"avg_total_cleaned"`
}

// DailyBucket holds one calendar day of the trailing window
type DailyBucket struct {
	Date            string `json:"date"`       // YYYY-MM-DD
	DateLabel       string `json:"date_label"` // DD/MM
	Weekday         string `json:"weekday"`    // Mon, Tue, ...
	TotalCleaned    int    `json:"total_cleaned"`
	ForecastedDrops int    `json:"forecasted_drops"`
	Reports         int    `json:"reports"`
	Users           int    `json:"users"`
}

type UserStats struct {
	TotalReports     int `json:"total_reports"`
	ReportsThisMonth int `json:"reports_this_month"`
	ReportsSent      int `json:"reports_sent"`
	ReportsToday     int `json:"reports_today"`
}

// UserDashboard is the individual dashboard
type UserDashboard struct {
	Summary
	Daily          []DailyBucket    `json:"daily"`
	PerformancePct float64          `json:"performance_pct"`
	ThisWeekTotal  int              `json:"this_week_total"`
	LastWeekTotal  int              `json:"last_week_total"`
	Stats          UserStats        `json:"stats"`
	RecentReports  []ReportResponse `json:"recent_reports"`
	CompanyID      *string          `json:"company_id"`
}

// UserRanking is one row of the consolidated per-user ranking
type UserRanking struct {
	UserID       string  `json:"user_id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	TotalReports int     `json:"total_reports"`
	TotalCleaned int     `json:"total_cleaned"`
	ReportsSent  int     `json:"reports_sent"`
	LastReportAt *string `json:"last_report_at,omitempty"`
}

type GeneralStats struct {
	TotalUsers       int `json:"total_users"`
	TotalReports     int `json:"total_reports"`
	ReportsThisMonth int `json:"reports_this_month"`
	ActiveUsersToday int `json:"active_users_today"`
}

// AdminDashboard is the consolidated dashboard across all users
type AdminDashboard struct {
	Summary
	Daily          []DailyBucket          `json:"daily"`
	PerformancePct float64                `json:"performance_pct"`
	ThisWeekTotal  int                    `json:"this_week_total"`
	LastWeekTotal  int                    `json:"last_week_total"`
	General        GeneralStats           `json:"general"`
	Users          []UserRanking          `json:"users"`
	EmailStatus    map[DeliveryStatus]int `json:"email_status"`
}
