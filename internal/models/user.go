package models

import "time"

// Role is the coarse authorization level of a user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Permission is a grantable capability.
type Permission string

const (
	PermAll            Permission = "all"
	PermCreateArticles Permission = "create:articles"
	PermEditArticles   Permission = "edit:articles"
	PermDeleteArticles Permission = "delete:articles"
	PermCreateVideos   Permission = "create:videos"
	PermEditVideos     Permission = "edit:videos"
	PermDeleteVideos   Permission = "delete:videos"
	PermManageUsers    Permission = "manage:users"
)

// AllPermissions is the closed capability enumeration.
var AllPermissions = []Permission{
	PermAll,
	PermCreateArticles,
	PermEditArticles,
	PermDeleteArticles,
	PermCreateVideos,
	PermEditVideos,
	PermDeleteVideos,
	PermManageUsers,
}

func (p Permission) Valid() bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// User is a platform account.
type User struct {
	Base        `bson:",inline"`
	Username    string       `json:"username"              bson:"username"`
	Email       string       `json:"email"                 bson:"email"`
	Password    string       `json:"-"                     bson:"password"`
	Role        Role         `json:"role"                  bson:"role"`
	Permissions []Permission `json:"permissions"           bson:"permissions"`
	Active      bool         `json:"active"                bson:"active"`
	LastLogin   *time.Time   `json:"lastLogin,omitempty"   bson:"lastLogin,omitempty"`
	LastLoginIP string       `json:"lastLoginIp,omitempty" bson:"lastLoginIp,omitempty"`
}
