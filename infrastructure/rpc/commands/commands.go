// Package commands holds the command tags shared by the gateway client and
// the user service dispatcher. The canonical list below is what the server
// validates its dispatch table against at startup.
package commands

// UserServiceQueue is the Redis list the user service consumes.
const UserServiceQueue = "rpc:user-service:requests"

const (
	// User CRUD
	CreateUser         = "create_user"
	FindAllUsers       = "find_all_users"
	FindUserByID       = "find_user_by_id"
	FindUserByEmail    = "find_user_by_email"
	FindUserByUsername = "find_user_by_username"
	UpdateUser         = "update_user"
	DeleteUser         = "delete_user"
	HardDeleteUser     = "hard_delete_user"

	// Authentication and account protection
	FindUserByEmailWithPassword = "find_user_by_email_with_password"
	IsAccountLocked             = "is_account_locked"
	RecordFailedLogin           = "record_failed_login"
	ResetFailedLoginAttempts    = "reset_failed_login_attempts"

	// Audit trail
	RecordAuditEvent        = "record_audit_event"
	GetAuditLogsByUser      = "get_audit_logs_by_user"
	GetAuditLogsByAction    = "get_audit_logs_by_action"
	GetAuditLogsByDateRange = "get_audit_logs_by_date_range"
)

// UserService returns every command the user service must handle.
func UserService() []string {
	return []string{
		CreateUser,
		FindAllUsers,
		FindUserByID,
		FindUserByEmail,
		FindUserByUsername,
		UpdateUser,
		DeleteUser,
		HardDeleteUser,
		FindUserByEmailWithPassword,
		IsAccountLocked,
		RecordFailedLogin,
		ResetFailedLoginAttempts,
		RecordAuditEvent,
		GetAuditLogsByUser,
		GetAuditLogsByAction,
		GetAuditLogsByDateRange,
	}
}
