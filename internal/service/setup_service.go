package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bclabs/school-portal-api/internal/models"
	"github.com/bclabs/school-portal-api/internal/repository"
	"github.com/bclabs/school-portal-api/internal/syscfg"
	appErrors "github.com/bclabs/school-portal-api/pkg/errors"
)

type setupUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SetupService runs the first-run installation wizard.
type SetupService struct {
	store     syscfg.Store
	users     setupUserRepository
	keyPrefix string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSetupService constructs a SetupService.
func NewSetupService(store syscfg.Store, users setupUserRepository, keyPrefix string, validate *validator.Validate, logger *zap.Logger) *SetupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SetupService{store: store, users: users, keyPrefix: keyPrefix, validator: validate, logger: logger}
}

// Status reports whether the system has been installed.
func (s *SetupService) Status(ctx context.Context) (bool, error) {
	cfg, err := s.store.Load(ctx)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load system config")
	}
	return cfg.Installed, nil
}

// Install creates the first admin account and marks the system installed.
// It fails once the system is already installed.
func (s *SetupService) Install(ctx context.Context, req models.SetupRequest, meta AuditMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "all fields required")
	}

	cfg, err := s.store.Load(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load system config")
	}
	if cfg.Installed {
		return appErrors.Clone(appErrors.ErrAlreadyInstalled, "system already installed")
	}

	if !strings.HasPrefix(req.ProductKey, s.keyPrefix) {
		return appErrors.Clone(appErrors.ErrInvalidProductKey, "invalid product key")
	}

	hash, err := HashPassword(req.AdminPassword)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	admin := &models.User{
		Username:     req.AdminUsername,
		PasswordHash: hash,
		Role:         models.TypeAdmin,
		Type:         models.TypeAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return appErrors.Clone(appErrors.ErrDuplicateKey, "admin username already exists")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin user")
	}

	now := time.Now().UTC()
	if _, err := s.store.Update(ctx, func(cfg *models.SystemConfig) error {
		cfg.Installed = true
		cfg.SchoolName = req.SchoolName
		cfg.ProductKey = req.ProductKey
		cfg.InstalledAt = &now
		if cfg.LicenseStatus == "" {
			cfg.LicenseStatus = models.LicenseInactive
		}
		return nil
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist system config")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    &admin.ID,
		Action:    models.AuditActionSetup,
		Resource:  "setup",
		NewValues: []byte(`{"status":"installed"}`),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record setup audit log", zap.Error(err))
	}

	return nil
}
