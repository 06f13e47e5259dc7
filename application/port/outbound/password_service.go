package outbound

type PasswordService interface {
	HashPassword(password string) (string, error)
	// VerifyPassword returns (false, nil) on a mismatch and a non-nil error
	// only for operational failures.
	VerifyPassword(password, hash string) (bool, error)
}
