package user

import (
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/pagination"
)

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type CreateUserDTO struct {
	Username    string              `json:"username"    binding:"required,min=3,max=32"`
	Email       string              `json:"email"       binding:"required,email"`
	Password    string              `json:"password"    binding:"required,min=8,max=72"`
	Role        models.Role         `json:"role"        binding:"required"`
	Permissions []models.Permission `json:"permissions"`
	Active      *bool               `json:"active"`
}

type UpdateUserDTO struct {
	Email       *string              `json:"email"`
	Role        *models.Role         `json:"role"`
	Permissions *[]models.Permission `json:"permissions"`
	Active      *bool                `json:"active"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// ListQuery filters the admin user listing.
type ListQuery struct {
	Role   models.Role
	Active *bool
	Search string
	Page   pagination.Query
}
