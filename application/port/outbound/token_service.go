package outbound

// TokenClaims is the session token payload. It is derived at login and never
// stored server side; validity is purely cryptographic and time bounded.
type TokenClaims struct {
	UserID      string
	Email       string
	Username    string
	IsAdmin     bool
	IsModerator bool
}

type TokenService interface {
	GenerateAccessToken(claims TokenClaims) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}
