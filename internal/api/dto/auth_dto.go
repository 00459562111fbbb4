package dto

// LoginRequest payload for both user and staff login.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// SignupRequest payload.
type SignupRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// AuthResponse is returned by every account endpoint. Redirect is where the
// front end should navigate next.
type AuthResponse struct {
	Presence Presence `json:"presence"`
	Redirect string   `json:"redirect"`
}
