package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bclabs/school-portal-api/internal/models"
	"github.com/bclabs/school-portal-api/internal/syscfg"
	appErrors "github.com/bclabs/school-portal-api/pkg/errors"
)

type licenseAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// LicenseService decides request admission from the persisted license state
// and owns license activation.
type LicenseService struct {
	store     syscfg.Store
	auditor   licenseAuditor
	keyPrefix string
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLicenseService constructs a LicenseService.
func NewLicenseService(store syscfg.Store, auditor licenseAuditor, keyPrefix string, validate *validator.Validate, logger *zap.Logger) *LicenseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LicenseService{store: store, auditor: auditor, keyPrefix: keyPrefix, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Evaluate returns nil when the request may proceed. Reads are never blocked
// by license state so a school can always view its own data.
func (s *LicenseService) Evaluate(ctx context.Context, method string) error {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}

	cfg, err := s.store.Load(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "license check failed")
	}

	if cfg.LicenseStatus == models.LicenseLocked {
		return appErrors.ErrLicenseLocked
	}

	if cfg.LicenseExpiry != nil && s.now().After(*cfg.LicenseExpiry) {
		return appErrors.ErrLicenseExpired
	}

	return nil
}

// Activate validates the product key and extends the license by the
// requested number of days. Restricted to admin principals.
func (s *LicenseService) Activate(ctx context.Context, claims *models.JWTClaims, req models.ActivateLicenseRequest, meta AuditMeta) (*models.SystemConfig, error) {
	if claims == nil || claims.Type != models.TypeAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unauthorized")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing fields")
	}

	if !strings.HasPrefix(req.ProductKey, s.keyPrefix) {
		return nil, appErrors.Clone(appErrors.ErrInvalidProductKey, "invalid product key")
	}

	expiry := s.now().AddDate(0, 0, req.DurationInDays)
	cfg, err := s.store.Update(ctx, func(cfg *models.SystemConfig) error {
		cfg.ProductKey = req.ProductKey
		cfg.LicenseStatus = models.LicenseActive
		cfg.LicenseExpiry = &expiry
		return nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist license")
	}

	if err := s.auditor.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    &claims.UserID,
		Action:    models.AuditActionLicenseActivate,
		Resource:  "license",
		NewValues: []byte(`{"status":"active"}`),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record license audit log", zap.Error(err))
	}

	return &cfg, nil
}

// Status returns the admin view of the current license.
func (s *LicenseService) Status(ctx context.Context, claims *models.JWTClaims) (*models.LicenseStatusResponse, error) {
	if claims == nil || claims.Type != models.TypeAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unauthorized")
	}

	cfg, err := s.store.Load(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load system config")
	}

	return &models.LicenseStatusResponse{
		LicenseStatus: cfg.LicenseStatus,
		LicenseExpiry: cfg.LicenseExpiry,
		ProductKey:    cfg.ProductKey,
	}, nil
}
