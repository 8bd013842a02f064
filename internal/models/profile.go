package models

// Profile carries the candidate attributes match filtering needs. The full
// user profile lives outside this service.
type Profile struct {
	UserID   string `json:"user_id"`
	Age      int    `json:"age"`
	Verified bool   `json:"verified"`
	HasPhoto bool   `json:"has_photo"`
}
