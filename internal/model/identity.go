package model

// Identity is the profile decoded from a verified Google ID token.
// It is never stored server-side; the stable subject id links a session
// to the rows it owns.
type Identity struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}
