package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/doara/doara/application/port/outbound"
	"github.com/doara/doara/domain/entity"
	"github.com/doara/doara/infrastructure/service/logger"
)

type CreateUserRequest struct {
	Email       *string `json:"email"`
	Username    *string `json:"username"`
	Password    string  `json:"password"`
	IsAdmin     bool    `json:"is_admin"`
	IsModerator bool    `json:"is_moderator"`
	ActorID     *string `json:"actor_id"`
}

type UpdateUserRequest struct {
	ID          string  `json:"id"`
	Email       *string `json:"email"`
	Username    *string `json:"username"`
	Password    *string `json:"password"`
	Status      *string `json:"status"`
	IsAdmin     *bool   `json:"is_admin"`
	IsModerator *bool   `json:"is_moderator"`
	ActorID     *string `json:"actor_id"`
}

// UserUseCase is the service-side user management logic: CRUD against the
// durable store with uniqueness enforcement, hashing on write, and audit
// entries for every mutation. Every read it returns is redacted.
type UserUseCase struct {
	users     outbound.UserRepository
	passwords outbound.PasswordService
	audit     outbound.AuditEmitter
	log       logger.Logger
}

func NewUserUseCase(
	users outbound.UserRepository,
	passwords outbound.PasswordService,
	audit outbound.AuditEmitter,
	log logger.Logger,
) *UserUseCase {
	return &UserUseCase{
		users:     users,
		passwords: passwords,
		audit:     audit,
		log:       log,
	}
}

func (uc *UserUseCase) Create(ctx context.Context, req CreateUserRequest) (*entity.PublicUser, error) {
	if req.Email == nil && req.Username == nil {
		return nil, fmt.Errorf("email or username is required")
	}

	if req.Email != nil {
		if err := uc.ensureEmailFree(ctx, *req.Email); err != nil {
			return nil, err
		}
	}
	if req.Username != nil {
		if err := uc.ensureUsernameFree(ctx, *req.Username); err != nil {
			return nil, err
		}
	}

	var hash string
	if req.Password != "" {
		var err error
		hash, err = uc.passwords.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	user := entity.NewUser(uuid.New().String(), req.Email, req.Username, hash)
	user.IsAdmin = req.IsAdmin
	user.IsModerator = req.IsModerator

	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}

	uc.audit.Emit(ctx, entity.NewUserCreatedAudit(user.ID, req.ActorID))
	uc.log.Info(ctx, "User created", map[string]interface{}{"user_id": user.ID})
	return user.Public(), nil
}

func (uc *UserUseCase) FindByID(ctx context.Context, id string) (*entity.PublicUser, error) {
	user, err := uc.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// FindByEmail yields (nil, nil) for unknown emails: absence is a valid
// answer on this path, not a fault.
func (uc *UserUseCase) FindByEmail(ctx context.Context, email string) (*entity.PublicUser, error) {
	user, err := uc.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user.Public(), nil
}

func (uc *UserUseCase) FindByUsername(ctx context.Context, username string) (*entity.PublicUser, error) {
	user, err := uc.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user.Public(), nil
}

func (uc *UserUseCase) List(ctx context.Context, page, limit int) ([]*entity.PublicUser, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	users, err := uc.users.FindAll(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	public := make([]*entity.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	return public, nil
}

func (uc *UserUseCase) Update(ctx context.Context, req UpdateUserRequest) (*entity.PublicUser, error) {
	user, err := uc.users.FindByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	var changed []string

	if req.Email != nil && !equalPtr(req.Email, user.Email) {
		if err := uc.ensureEmailFree(ctx, *req.Email); err != nil {
			return nil, err
		}
		user.Email = req.Email
		changed = append(changed, "email")
	}
	if req.Username != nil && !equalPtr(req.Username, user.Username) {
		if err := uc.ensureUsernameFree(ctx, *req.Username); err != nil {
			return nil, err
		}
		user.Username = req.Username
		changed = append(changed, "username")
	}

	passwordChanged := false
	user.PasswordHash = ""
	if req.Password != nil && *req.Password != "" {
		hash, err := uc.passwords.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
		passwordChanged = true
		changed = append(changed, "password")
	}
	if req.Status != nil {
		user.Status = entity.UserStatus(*req.Status)
		changed = append(changed, "status")
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
		changed = append(changed, "is_admin")
	}
	if req.IsModerator != nil {
		user.IsModerator = *req.IsModerator
		changed = append(changed, "is_moderator")
	}

	user.UpdatedAt = time.Now().UTC()
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if len(changed) > 0 {
		uc.audit.Emit(ctx, entity.NewUserUpdatedAudit(user.ID, req.ActorID, changed))
	}
	if passwordChanged {
		uc.audit.Emit(ctx, entity.NewPasswordChangedAudit(user.ID, req.ActorID))
	}
	return user.Public(), nil
}

func (uc *UserUseCase) SoftDelete(ctx context.Context, id string, actorID *string) error {
	if err := uc.users.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	uc.audit.Emit(ctx, entity.NewUserDeletedAudit(id, actorID))
	return nil
}

func (uc *UserUseCase) HardDelete(ctx context.Context, id string, actorID *string) error {
	if err := uc.users.HardDelete(ctx, id); err != nil {
		return err
	}
	uc.audit.Emit(ctx, entity.NewUserHardDeletedAudit(id, actorID))
	logger.LogSecurityEvent(ctx, uc.log, "user_hard_deleted", "MEDIUM", map[string]interface{}{
		"user_id": id,
	})
	return nil
}

func (uc *UserUseCase) ensureEmailFree(ctx context.Context, email string) error {
	_, err := uc.users.FindByEmail(ctx, email)
	if err == nil {
		return outbound.ErrEmailTaken
	}
	if errors.Is(err, outbound.ErrUserNotFound) {
		return nil
	}
	return err
}

func (uc *UserUseCase) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := uc.users.FindByUsername(ctx, username)
	if err == nil {
		return outbound.ErrUsernameTaken
	}
	if errors.Is(err, outbound.ErrUserNotFound) {
		return nil
	}
	return err
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
