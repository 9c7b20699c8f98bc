package model

// User is a read-only summary of an account owned by the auth service.
// Rents reference users indirectly through their schedule.
type User struct {
	ID    uint64 `json:"id_user"` // users.id_user
	Name  string `json:"name"`    // users.name
	Email string `json:"email"`   // users.email
}
