package domain

// User is the owner reference for orders and the recipient of OTP mail.
// Authentication itself lives outside this service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
