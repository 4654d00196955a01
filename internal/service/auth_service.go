package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bclabs/school-portal-api/internal/models"
	appErrors "github.com/bclabs/school-portal-api/pkg/errors"
)

// DefaultPassword is assigned to provisioned student/staff accounts created
// without an explicit password. It is hashed before storage and only works
// until the account is activated with a user-chosen password.
const DefaultPassword = "123"

type studentDirectory interface {
	FindByAdmissionNo(ctx context.Context, admissionNo string) (*models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	SetPassword(ctx context.Context, id, passwordHash string, activatedAt *time.Time) error
}

type staffDirectory interface {
	FindByStaffID(ctx context.Context, staffID string) (*models.Staff, error)
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	SetPassword(ctx context.Context, id, passwordHash string, activatedAt *time.Time) error
}

type userDirectory interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
}

// AuditMeta carries request metadata into audit log entries.
type AuditMeta struct {
	IP        string
	UserAgent string
}

// AuthResult is the outcome of a successful login or activation. When
// NeedsActivation is set no token was issued and the caller must run the
// activation flow first.
type AuthResult struct {
	Token           string
	Principal       models.Principal
	NeedsActivation bool
}

// AuthService resolves principals across the three account collections and
// owns credential mutation.
type AuthService struct {
	students  studentDirectory
	staff     staffDirectory
	users     userDirectory
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(students studentDirectory, staff staffDirectory, users userDirectory, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{students: students, staff: staff, users: users, validator: validate, logger: logger, config: config}
}

// Login authenticates an identifier against students, staff and users in
// that order, stopping at the first match. The same error is returned for an
// unknown identifier and a wrong password.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, meta AuditMeta) (*AuthResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	principal, err := s.lookupByIdentifier(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up principal")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash()), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}

	if !principal.Activated() {
		return &AuthResult{Principal: principal, NeedsActivation: true}, nil
	}

	token, err := s.issueToken(principal)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}

	s.audit(ctx, principal.ID(), models.AuditActionLogin, meta, []byte(`{"status":"success"}`))

	return &AuthResult{Token: token, Principal: principal}, nil
}

// Activate sets the first user-chosen password on a provisioned student or
// staff account and issues a session token. Generic users are never subject
// to activation.
func (s *AuthService) Activate(ctx context.Context, req models.ActivateRequest, meta AuditMeta) (*AuthResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activation payload")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()

	student, err := s.students.FindByAdmissionNo(ctx, req.Username)
	switch {
	case err == nil:
		if err := s.students.SetPassword(ctx, student.ID, hash, &now); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate account")
		}
		student.PasswordHash = hash
		student.IsActivated = true
		student.ActivatedAt = &now
		return s.finishActivation(ctx, models.Principal{Student: student}, meta)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student")
	}

	staff, err := s.staff.FindByStaffID(ctx, req.Username)
	switch {
	case err == nil:
		if err := s.staff.SetPassword(ctx, staff.ID, hash, &now); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate account")
		}
		staff.PasswordHash = hash
		staff.IsActivated = true
		staff.ActivatedAt = &now
		return s.finishActivation(ctx, models.Principal{Staff: staff}, meta)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up staff")
	}

	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}

func (s *AuthService) finishActivation(ctx context.Context, principal models.Principal, meta AuditMeta) (*AuthResult, error) {
	token, err := s.issueToken(principal)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}

	s.audit(ctx, principal.ID(), models.AuditActionActivation, meta, []byte(`{"status":"activated"}`))

	return &AuthResult{Token: token, Principal: principal}, nil
}

// ChangePassword verifies the old password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, req models.ChangePasswordRequest, meta AuditMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	principal, err := s.lookupByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up principal")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash()), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrIncorrectOldPassword, "old password incorrect")
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	switch {
	case principal.Student != nil:
		err = s.students.SetPassword(ctx, principal.ID(), hash, nil)
	case principal.Staff != nil:
		err = s.staff.SetPassword(ctx, principal.ID(), hash, nil)
	default:
		err = s.users.UpdatePassword(ctx, principal.ID(), hash)
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	s.audit(ctx, principal.ID(), models.AuditActionPasswordChange, meta, []byte(`{"status":"changed"}`))

	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *AuthService) lookupByIdentifier(ctx context.Context, identifier string) (models.Principal, error) {
	student, err := s.students.FindByAdmissionNo(ctx, identifier)
	if err == nil {
		return models.Principal{Student: student}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Principal{}, err
	}

	staff, err := s.staff.FindByStaffID(ctx, identifier)
	if err == nil {
		return models.Principal{Staff: staff}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Principal{}, err
	}

	user, err := s.users.FindByUsername(ctx, identifier)
	if err != nil {
		return models.Principal{}, err
	}
	return models.Principal{User: user}, nil
}

func (s *AuthService) lookupByID(ctx context.Context, id string) (models.Principal, error) {
	student, err := s.students.FindByID(ctx, id)
	if err == nil {
		return models.Principal{Student: student}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Principal{}, err
	}

	staff, err := s.staff.FindByID(ctx, id)
	if err == nil {
		return models.Principal{Staff: staff}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Principal{}, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return models.Principal{}, err
	}
	return models.Principal{User: user}, nil
}

func (s *AuthService) issueToken(principal models.Principal) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: principal.ID(),
		Role:   principal.Role(),
		Type:   principal.Type(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   principal.ID(),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.TokenSecret))
}

func (s *AuthService) audit(ctx context.Context, principalID, action string, meta AuditMeta, values []byte) {
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &principalID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &principalID,
		NewValues:  values,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
