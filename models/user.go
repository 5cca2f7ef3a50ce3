package models

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     *string   `gorm:"size:100;unique" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"password,omitempty"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	Role      UserRole  `gorm:"size:1;not null;default:'S'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string `json:"username" binding:"required" validate:"required,max=100"`
	Name     string `json:"name" binding:"required" validate:"required,max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" binding:"required" validate:"required,min=6"`
}

type LoginInfo struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserId    int       `json:"user_id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      UserRole  `json:"role"`
}

/*
caches:
	User:$id
*/

func (user User) RemoveInstanceRedis() error {
	return utils.RemoveRedis[User](user.ID)
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func (user User) Active() bool {
	return utils.DereferencePtr(user.IsActive, false)
}

// Register creates a standard account.
func Register(ctx context.Context, input *NewUser) (*User, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	return createUser(ctx, input, UserRoleStandard)
}

func createUser(ctx context.Context, input *NewUser, role UserRole) (*User, error) {
	db := config.GetDB()

	input.Username = html.EscapeString(strings.TrimSpace(input.Username))
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, utils.NewValidationError("email", "invalid email address")
	}

	if err := utils.ValidateUnique[User](ctx, "username", input.Username, 0); err != nil {
		return nil, err
	}
	if input.Email != "" {
		if err := utils.ValidateUnique[User](ctx, "email", input.Email, 0); err != nil {
			return nil, err
		}
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Username: input.Username,
		Name:     strings.TrimSpace(input.Name),
		Email:    utils.NilIfEmpty(input.Email),
		Password: string(hashedPassword),
		IsActive: utils.NewTrue(),
		Role:     role,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

// SeedAdmin creates the administrator account, or resets name, password and role when the username exists.
func SeedAdmin(ctx context.Context, input *NewUser) (*User, bool, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, false, err
	}
	db := config.GetDB()

	var existing User
	err := db.WithContext(ctx).Where("username = ?", input.Username).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err := createUser(ctx, input, UserRoleAdmin)
		return user, true, err
	}
	if err != nil {
		return nil, false, err
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, false, err
	}
	if err := db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"name":      input.Name,
		"password":  string(hashedPassword),
		"role":      UserRoleAdmin,
		"is_active": true,
	}).Error; err != nil {
		return nil, false, err
	}
	if err := existing.RemoveInstanceRedis(); err != nil {
		return nil, false, err
	}
	existing.PrepareGive()
	return &existing, false, nil
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {
	db := config.GetDB()

	var user User
	if err := db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorInvalidCredentials
		}
		return nil, err
	}

	// check login credentials
	if err := utils.ComparePassword(user.Password, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, utils.ErrorInvalidCredentials
		}
		return nil, err
	}
	if !user.Active() {
		return nil, utils.ErrorUserDisabled
	}

	lifespan := config.TokenLifespan()
	token, err := utils.JwtGenerate(user.ID, string(user.Role), lifespan)
	if err != nil {
		return nil, err
	}

	return &LoginInfo{
		Token:     token,
		ExpiresAt: time.Now().Add(lifespan).UTC(),
		UserId:    user.ID,
		Username:  user.Username,
		Name:      user.Name,
		Role:      user.Role,
	}, nil
}

// GetUser reads through the redis cache.
func GetUser(ctx context.Context, id int) (*User, error) {
	result, err := utils.RetrieveRedis[User](id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result, err = utils.FetchModel[User](ctx, id)
		if err != nil {
			return nil, err
		}
		result.PrepareGive()
		if err := utils.StoreRedis[User](result, id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func ListUsers(ctx context.Context) ([]*User, error) {
	if !utils.IsAdmin(ctx) {
		return nil, utils.ErrorForbidden
	}
	db := config.GetDB()
	var results []*User
	if err := db.WithContext(ctx).Order("name").Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	for _, u := range results {
		u.PrepareGive()
	}
	return results, nil
}

func ToggleActiveUser(ctx context.Context, id int, isActive bool) (*User, error) {
	if !utils.IsAdmin(ctx) {
		return nil, utils.ErrorForbidden
	}
	if callerId, _ := utils.CallerId(ctx); callerId == id && !isActive {
		return nil, utils.NewValidationError("id", "cannot deactivate own account")
	}

	db := config.GetDB()
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(user).UpdateColumn("is_active", isActive).Error; err != nil {
		return nil, err
	}
	user.IsActive = &isActive
	if err := user.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	user.PrepareGive()
	return user, nil
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (*User, error) {
	userId, ok := utils.CallerId(ctx)
	if !ok {
		return nil, utils.ErrorUnauthorized
	}
	if len(newPassword) < 6 {
		return nil, utils.NewValidationError("new_password", "min")
	}

	db := config.GetDB()
	user, err := utils.FetchModel[User](ctx, userId)
	if err != nil {
		return nil, err
	}
	// check oldPassword
	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return nil, utils.NewValidationError("old_password", "old password is wrong")
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(user).UpdateColumn("password", string(hashedPassword)).Error; err != nil {
		return nil, err
	}
	if err := user.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	user.PrepareGive()
	return user, nil
}

// MapUsers loads users by id for the dataloader.
func MapUsers(ctx context.Context, ids []int) (map[int]*User, error) {
	result, err := utils.FetchModelsByIds[User](ctx, ids, func(u *User) int { return u.ID })
	if err != nil {
		return nil, err
	}
	for _, u := range result {
		u.PrepareGive()
	}
	return result, nil
}
