package models

// AuditStatistics is the system-wide summary shown on the regulator
// dashboard.
type AuditStatistics struct {
	TotalDrugs         int `json:"totalDrugs"`
	TotalUsers         int `json:"totalUsers"`
	TotalTransfers     int `json:"totalTransfers"`
	DrugsWithAnomalies int `json:"drugsWithAnomalies"`
	ExpiredDrugs       int `json:"expiredDrugs"`
}

// AuditResult flags one batch that failed verification during an audit sweep.
type AuditResult struct {
	BatchID        string `json:"batchId"`
	HasAnomalies   bool   `json:"hasAnomalies"`
	AnomalyType    string `json:"anomalyType"`
	OwnershipCount int    `json:"ownershipCount"`
	DrugName       string `json:"drugName"`
	Manufacturer   string `json:"manufacturer"`
	CurrentOwner   string `json:"currentOwner"`
}

// ExpiredDrug is one row of the expired-drugs report.
type ExpiredDrug struct {
	BatchID      string `json:"batchId"`
	DrugName     string `json:"drugName"`
	Manufacturer string `json:"manufacturer"`
	ExpiryDate   int64  `json:"expiryDate"`
	DaysExpired  int64  `json:"daysExpired"`
}

// RegisteredDrug is one batch in a manufacturer's activity report.
type RegisteredDrug struct {
	BatchID               string `json:"batchId"`
	DrugName              string `json:"drugName"`
	RegistrationTimestamp int64  `json:"registrationTimestamp"`
}

// UserActivity is the audit view of one user's actions. Only manufacturer
// activity is tracked; other roles get an explanatory message instead.
type UserActivity struct {
	WalletAddress        string           `json:"walletAddress"`
	Role                 Role             `json:"role"`
	TotalDrugsRegistered int              `json:"totalDrugsRegistered"`
	Drugs                []RegisteredDrug `json:"drugs,omitempty"`
	Message              string           `json:"message,omitempty"`
}
