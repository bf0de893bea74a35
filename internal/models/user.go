package models

import "time"

// Role identifies a party's position in the supply chain.
type Role string

const (
	RoleNone         Role = "NONE"
	RoleManufacturer Role = "MANUFACTURER"
	RoleDistributor  Role = "DISTRIBUTOR"
	RolePharmacy     Role = "PHARMACY"
	RoleConsumer     Role = "CONSUMER"
	RoleRegulator    Role = "REGULATOR"
)

// ParseRole maps a role name to a Role, returning RoleNone for anything it
// does not recognize.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleManufacturer, RoleDistributor, RolePharmacy, RoleConsumer, RoleRegulator:
		return Role(s)
	default:
		return RoleNone
	}
}

// User binds a wallet address to exactly one role. The role is fixed at
// registration and never changes afterwards.
type User struct {
	WalletAddress         string     `json:"walletAddress" db:"wallet_address"`
	Role                  Role       `json:"role" db:"role"`
	Name                  string     `json:"name" db:"name"`
	APIKeyHash            string     `json:"-" db:"api_key_hash"`
	IsRegistered          bool       `json:"isRegistered" db:"is_registered"`
	RegistrationTimestamp *time.Time `json:"registrationTimestamp,omitempty" db:"registration_timestamp"`
	CreatedAt             time.Time  `json:"createdAt" db:"created_at"`
}
