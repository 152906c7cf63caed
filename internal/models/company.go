package models

// Company (empresa) is the tenant a report belongs to
type Company struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	City      string `json:"city" db:"city"`
	Active    bool   `json:"active" db:"active"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

// CompanyMembership links a user to a company they may work for
type CompanyMembership struct {
	UserID    string `json:"user_id" db:"user_id"`
	CompanyID string `json:"company_id" db:"company_id"`
	LinkedAt  int64  `json:"linked_at" db:"linked_at"`
}

// ActiveCompany is the one-per-user binding to the selected company.
// A nil CompanyID means no company is selected.
type ActiveCompany struct {
	UserID    string  `db:"user_id"`
	CompanyID *string `db:"company_id"`
}

type CreateCompanyRequest struct {
	Name string `json:"name"`
	City string `json:"city"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

// SetActiveCompanyRequest clears the selection when company_id is null
type SetActiveCompanyRequest struct {
	CompanyID *string `json:"company_id"`
}

type CompaniesResponse struct {
	Companies       []Company `json:"companies"`
	ActiveCompanyID *string   `json:"active_company_id"`
}
