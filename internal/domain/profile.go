package domain

// Profile is the backend's user record. Email is the join key against the
// identity provider's session; the two are reconciled by the session store.
type Profile struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	Photo       string `json:"photo,omitempty"`
	CompanyName string `json:"companyName,omitempty"` // HR accounts
	CompanyLogo string `json:"companyLogo,omitempty"` // HR accounts
	DateOfBirth string `json:"dateOfBirth,omitempty"` // employee accounts
	PackageID   string `json:"packageId,omitempty"`   // HR subscription tier
}

// Affiliation binds an employee to the HR account (and company) that
// onboarded them. The backend creates one per approved onboarding.
type Affiliation struct {
	ID            string `json:"_id,omitempty"`
	EmployeeEmail string `json:"employeeEmail"`
	EmployeeName  string `json:"employeeName,omitempty"`
	HREmail       string `json:"hrEmail"`
	CompanyName   string `json:"companyName,omitempty"`
	CompanyLogo   string `json:"companyLogo,omitempty"`
}
