package model

// RoleAdmin is the role label that unlocks the admin area.
const RoleAdmin = "ADMIN"

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the data of a successful login envelope.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// User is the identity projected from a session.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}
