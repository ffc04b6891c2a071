package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/pkg/pagination"
	"github.com/qalam-news/core/internal/pkg/response"
	"github.com/qalam-news/core/internal/policy"
	"github.com/qalam-news/core/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service is the credential store: user records and their password hashes.
type Service struct {
	store  store.Store
	logger *zap.Logger
	cost   int
	now    func() time.Time

	dummyHash []byte
}

type Option func(*Service)

// WithBcryptCost overrides the hashing cost. Values outside bcrypt's range use the default.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  st,
		logger: logger.Named("UserService"),
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("qalam-timing-equalizer"), s.cost)
	return s
}

// GetByID returns the user or a NotFound error.
func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.store.FindOne(ctx, models.CollectionUsers, store.Filter{"_id": id}, &u); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// FindByUsername returns the user or ErrUserNotFound.
func (s *Service) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.store.FindOne(ctx, models.CollectionUsers, store.Filter{"username": NormalizeUsername(username)}, &u)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// CheckPassword reports whether password matches the user's stored hash.
// A nil user still pays for one comparison so unknown usernames take as long as wrong passwords.
func (s *Service) CheckPassword(u *models.User, password string) bool {
	hash := s.dummyHash
	if u != nil {
		hash = []byte(u.Password)
	}
	ok := bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
	return ok && u != nil
}

// Register creates a self-service account: viewer role, no extra permissions.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*models.User, error) {
	active := true
	return s.create(ctx, CreateUserDTO{
		Username: dto.Username,
		Email:    dto.Email,
		Password: dto.Password,
		Role:     models.RoleViewer,
		Active:   &active,
	})
}

// Create inserts a user on behalf of actor, who may only grant what CheckGrant allows.
func (s *Service) Create(ctx context.Context, actor *policy.Claims, dto CreateUserDTO) (*models.User, error) {
	if err := CheckGrant(actor, nil, dto.Role, dedupePermissions(dto.Permissions)); err != nil {
		return nil, err
	}
	return s.create(ctx, dto)
}

// create inserts a user. Uniqueness of username and email is left to the store,
// so concurrent creates of the same name resolve to one success and one DuplicateEntry.
func (s *Service) create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	u := &models.User{
		Username:    NormalizeUsername(dto.Username),
		Email:       normalizeEmail(dto.Email),
		Role:        dto.Role,
		Permissions: dedupePermissions(dto.Permissions),
		Active:      true,
	}
	if dto.Active != nil {
		u.Active = *dto.Active
	}
	if err := validateUsername(u.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(u.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(dto.Password); err != nil {
		return nil, err
	}
	if err := validateGrant(u.Role, u.Permissions); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.Password = string(hash)
	u.Prepare(s.now().UTC().Truncate(time.Millisecond))

	if err := s.store.Insert(ctx, models.CollectionUsers, u); err != nil {
		return nil, mapWriteError(err)
	}
	s.logger.Info("user created", zap.String("id", u.ID), zap.String("username", u.Username), zap.String("role", string(u.Role)))
	return u, nil
}

// Update applies an edit made by actor to another account.
func (s *Service) Update(ctx context.Context, actor *policy.Claims, id string, dto UpdateUserDTO) (*models.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTarget(actor, u); err != nil {
		return nil, err
	}
	if dto.Active != nil && !*dto.Active && actor.UserID == u.ID {
		return nil, apperr.Validation("active", "cannot disable your own account")
	}
	if dto.Role != nil || dto.Permissions != nil {
		if actor.UserID == u.ID {
			return nil, apperr.New(apperr.CodeForbidden, "cannot change your own role or permissions")
		}
		role, perms := u.Role, u.Permissions
		if dto.Role != nil {
			role = *dto.Role
		}
		if dto.Permissions != nil {
			perms = dedupePermissions(*dto.Permissions)
		}
		if err := CheckGrant(actor, u, role, perms); err != nil {
			return nil, err
		}
	}

	set := bson.M{}
	if dto.Email != nil {
		email := normalizeEmail(*dto.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		u.Email = email
		set["email"] = email
	}
	if dto.Role != nil {
		u.Role = *dto.Role
		set["role"] = u.Role
	}
	if dto.Permissions != nil {
		u.Permissions = dedupePermissions(*dto.Permissions)
		set["permissions"] = u.Permissions
	}
	if dto.Active != nil {
		u.Active = *dto.Active
		set["active"] = u.Active
	}
	if err := validateGrant(u.Role, u.Permissions); err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return u, nil
	}

	u.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)
	set["updatedAt"] = u.UpdatedAt
	if err := s.store.UpdateOne(ctx, models.CollectionUsers, store.Filter{"_id": id}, set); err != nil {
		return nil, mapWriteError(err)
	}
	return u, nil
}

// SetActive enables or soft-disables an account.
func (s *Service) SetActive(ctx context.Context, actor *policy.Claims, id string, active bool) (*models.User, error) {
	return s.Update(ctx, actor, id, UpdateUserDTO{Active: &active})
}

// ChangePassword replaces the caller's password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, id, oldPwd, newPwd string) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.CheckPassword(u, oldPwd) {
		return apperr.ErrInvalidCredentials
	}
	if err := validatePassword(newPwd); err != nil {
		return err
	}
	if oldPwd == newPwd {
		return apperr.Validation("new_password", "must differ from the current password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPwd), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return mapWriteError(s.store.UpdateOne(ctx, models.CollectionUsers, store.Filter{"_id": id}, bson.M{
		"password":  string(hash),
		"updatedAt": s.now().UTC().Truncate(time.Millisecond),
	}))
}

// RecordLogin stamps the last successful login and returns the stored time.
func (s *Service) RecordLogin(ctx context.Context, id, ip string) (time.Time, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	err := s.store.UpdateOne(ctx, models.CollectionUsers, store.Filter{"_id": id}, bson.M{
		"lastLogin":   now,
		"lastLoginIp": ip,
	})
	return now, mapWriteError(err)
}

// Delete hard-deletes a user. Normal offboarding uses SetActive(false).
func (s *Service) Delete(ctx context.Context, actor *policy.Claims, id string) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if actor != nil && actor.UserID == u.ID {
		return apperr.Validation("id", "cannot delete your own account")
	}
	if err := checkTarget(actor, u); err != nil {
		return err
	}
	if err := s.store.DeleteOne(ctx, models.CollectionUsers, store.Filter{"_id": id}); err != nil {
		return mapWriteError(err)
	}
	s.logger.Info("user deleted", zap.String("id", id), zap.String("by", actor.UserID))
	return nil
}

// List returns users ordered by creation time.
func (s *Service) List(ctx context.Context, q ListQuery) ([]models.User, response.Pagination, error) {
	filter := store.Filter{}
	if q.Role != "" {
		filter["role"] = q.Role
	}
	if q.Active != nil {
		filter["active"] = *q.Active
	}
	if q.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = []store.Filter{{"username": pattern}, {"email": pattern}}
	}
	users := []models.User{}
	meta, err := pagination.Paginate(ctx, s.store, models.CollectionUsers, filter,
		[]store.SortField{{Field: "createdAt"}}, q.Page, &users)
	if err != nil {
		return nil, response.Pagination{}, fmt.Errorf("list users: %w", err)
	}
	return users, meta, nil
}

// EnsureAdmin creates an admin holding "all" when no user exists yet.
// It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	n, err := s.store.Count(ctx, models.CollectionUsers, store.Filter{})
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	_, err = s.create(ctx, CreateUserDTO{
		Username:    username,
		Email:       email,
		Password:    password,
		Role:        models.RoleAdmin,
		Permissions: []models.Permission{models.PermAll},
	})
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicateEntry) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
