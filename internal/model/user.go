package model

import "time"

// AccountType distinguishes the two sides of the marketplace.
const (
	AccountClient       = "client"
	AccountProfessional = "professional"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	AccountType  string    `json:"account_type"` // client / professional
	CreatedAt    time.Time `json:"created_at"`
}
