package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bclabs/school-portal-api/internal/models"
	appErrors "github.com/bclabs/school-portal-api/pkg/errors"
)

type fakeStudentDirectory struct {
	byAdmissionNo map[string]*models.Student
	byID          map[string]*models.Student
	setPassword   func(ctx context.Context, id, hash string, activatedAt *time.Time) error
}

func (f *fakeStudentDirectory) FindByAdmissionNo(_ context.Context, admissionNo string) (*models.Student, error) {
	if s, ok := f.byAdmissionNo[admissionNo]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentDirectory) FindByID(_ context.Context, id string) (*models.Student, error) {
	if s, ok := f.byID[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentDirectory) SetPassword(ctx context.Context, id, hash string, activatedAt *time.Time) error {
	if f.setPassword != nil {
		return f.setPassword(ctx, id, hash, activatedAt)
	}
	return nil
}

type fakeStaffDirectory struct {
	byStaffID   map[string]*models.Staff
	byID        map[string]*models.Staff
	setPassword func(ctx context.Context, id, hash string, activatedAt *time.Time) error
}

func (f *fakeStaffDirectory) FindByStaffID(_ context.Context, staffID string) (*models.Staff, error) {
	if s, ok := f.byStaffID[staffID]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStaffDirectory) FindByID(_ context.Context, id string) (*models.Staff, error) {
	if s, ok := f.byID[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStaffDirectory) SetPassword(ctx context.Context, id, hash string, activatedAt *time.Time) error {
	if f.setPassword != nil {
		return f.setPassword(ctx, id, hash, activatedAt)
	}
	return nil
}

type fakeUserDirectory struct {
	byUsername     map[string]*models.User
	byID           map[string]*models.User
	updatePassword func(ctx context.Context, id, hash string) error
	auditLogs      []*models.AuditLog
}

func (f *fakeUserDirectory) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if u, ok := f.byUsername[username]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserDirectory) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserDirectory) UpdatePassword(ctx context.Context, id, hash string) error {
	if f.updatePassword != nil {
		return f.updatePassword(ctx, id, hash)
	}
	return nil
}

func (f *fakeUserDirectory) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.auditLogs = append(f.auditLogs, log)
	return nil
}

func mustHash(t *testing.T, plaintext string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestAuthService(students *fakeStudentDirectory, staff *fakeStaffDirectory, users *fakeUserDirectory) *AuthService {
	if students == nil {
		students = &fakeStudentDirectory{}
	}
	if staff == nil {
		staff = &fakeStaffDirectory{}
	}
	if users == nil {
		users = &fakeUserDirectory{}
	}
	return NewAuthService(students, staff, users, nil, zap.NewNop(), AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "school-portal-api",
	})
}

func TestAuthService_Login_Student(t *testing.T) {
	students := &fakeStudentDirectory{
		byAdmissionNo: map[string]*models.Student{
			"STU-001": {
				ID:           "id-1",
				AdmissionNo:  "STU-001",
				PasswordHash: mustHash(t, "secret123"),
				Type:         models.TypeStudent,
				IsActivated:  true,
			},
		},
	}
	users := &fakeUserDirectory{}
	svc := newTestAuthService(students, nil, users)

	result, err := svc.Login(context.Background(), models.LoginRequest{Username: "STU-001", Password: "secret123"}, AuditMeta{IP: "127.0.0.1"})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.False(t, result.NeedsActivation)
	assert.Equal(t, "id-1", result.Principal.ID())
	require.Len(t, users.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, users.auditLogs[0].Action)
}

func TestAuthService_Login_LookupOrder(t *testing.T) {
	// The same identifier exists as an admission number and a username;
	// the student match wins.
	students := &fakeStudentDirectory{
		byAdmissionNo: map[string]*models.Student{
			"shared": {ID: "student-id", AdmissionNo: "shared", PasswordHash: mustHash(t, "pw123456"), Type: models.TypeStudent, IsActivated: true},
		},
	}
	users := &fakeUserDirectory{
		byUsername: map[string]*models.User{
			"shared": {ID: "user-id", Username: "shared", PasswordHash: mustHash(t, "pw123456"), Type: models.TypeUser},
		},
	}
	svc := newTestAuthService(students, nil, users)

	result, err := svc.Login(context.Background(), models.LoginRequest{Username: "shared", Password: "pw123456"}, AuditMeta{})

	require.NoError(t, err)
	assert.Equal(t, "student-id", result.Principal.ID())
}

func TestAuthService_Login_NeedsActivation(t *testing.T) {
	students := &fakeStudentDirectory{
		byAdmissionNo: map[string]*models.Student{
			"STU-002": {
				ID:           "id-2",
				AdmissionNo:  "STU-002",
				PasswordHash: mustHash(t, DefaultPassword),
				Type:         models.TypeStudent,
				IsActivated:  false,
			},
		},
	}
	svc := newTestAuthService(students, nil, nil)

	result, err := svc.Login(context.Background(), models.LoginRequest{Username: "STU-002", Password: DefaultPassword}, AuditMeta{})

	require.NoError(t, err)
	assert.True(t, result.NeedsActivation)
	assert.Empty(t, result.Token)
	assert.Equal(t, "STU-002", result.Principal.Identifier())
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	students := &fakeStudentDirectory{
		byAdmissionNo: map[string]*models.Student{
			"STU-001": {ID: "id-1", AdmissionNo: "STU-001", PasswordHash: mustHash(t, "right"), IsActivated: true},
		},
	}
	svc := newTestAuthService(students, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "STU-001", Password: "wrong"}, AuditMeta{})

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthService_Login_UnknownIdentifierSameError(t *testing.T) {
	svc := newTestAuthService(nil, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: "whatever"}, AuditMeta{})

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthService_Login_ValidationError(t *testing.T) {
	svc := newTestAuthService(nil, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "", Password: ""}, AuditMeta{})

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAuthService_Activate_Student(t *testing.T) {
	var storedHash string
	var storedActivatedAt *time.Time
	students := &fakeStudentDirectory{
		byAdmissionNo: map[string]*models.Student{
			"STU-001": {ID: "id-1", AdmissionNo: "STU-001", Type: models.TypeStudent},
		},
		setPassword: func(_ context.Context, id, hash string, activatedAt *time.Time) error {
			storedHash = hash
			storedActivatedAt = activatedAt
			return nil
		},
	}
	users := &fakeUserDirectory{}
	svc := newTestAuthService(students, nil, users)

	result, err := svc.Activate(context.Background(), models.ActivateRequest{Username: "STU-001", Password: "newsecret"}, AuditMeta{})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.True(t, result.Principal.Activated())
	require.NotNil(t, storedActivatedAt)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("newsecret")))
	require.Len(t, users.auditLogs, 1)
	assert.Equal(t, models.AuditActionActivation, users.auditLogs[0].Action)
}

func TestAuthService_Activate_Staff(t *testing.T) {
	staff := &fakeStaffDirectory{
		byStaffID: map[string]*models.Staff{
			"TCH-001": {ID: "staff-1", StaffID: "TCH-001", Role: "teacher", Type: models.TypeStaff},
		},
	}
	svc := newTestAuthService(nil, staff, nil)

	result, err := svc.Activate(context.Background(), models.ActivateRequest{Username: "TCH-001", Password: "newsecret"}, AuditMeta{})

	require.NoError(t, err)
	assert.Equal(t, "staff-1", result.Principal.ID())
	assert.Equal(t, "teacher", result.Principal.Role())
}

func TestAuthService_Activate_UnknownIdentifier(t *testing.T) {
	svc := newTestAuthService(nil, nil, nil)

	_, err := svc.Activate(context.Background(), models.ActivateRequest{Username: "nobody", Password: "newsecret"}, AuditMeta{})

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAuthService_ChangePassword(t *testing.T) {
	var storedHash string
	users := &fakeUserDirectory{
		byID: map[string]*models.User{
			"user-1": {ID: "user-1", Username: "admin", PasswordHash: mustHash(t, "oldpass"), Type: models.TypeAdmin},
		},
		updatePassword: func(_ context.Context, id, hash string) error {
			storedHash = hash
			return nil
		},
	}
	svc := newTestAuthService(nil, nil, users)

	err := svc.ChangePassword(context.Background(), models.ChangePasswordRequest{
		UserID:      "user-1",
		OldPassword: "oldpass",
		NewPassword: "brandnew",
	}, AuditMeta{})

	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("brandnew")))
}

func TestAuthService_ChangePassword_WrongOldPassword(t *testing.T) {
	users := &fakeUserDirectory{
		byID: map[string]*models.User{
			"user-1": {ID: "user-1", PasswordHash: mustHash(t, "oldpass")},
		},
	}
	svc := newTestAuthService(nil, nil, users)

	err := svc.ChangePassword(context.Background(), models.ChangePasswordRequest{
		UserID:      "user-1",
		OldPassword: "nope",
		NewPassword: "brandnew",
	}, AuditMeta{})

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrIncorrectOldPassword.Code, appErr.Code)
}

func TestAuthService_ChangePassword_UnknownUser(t *testing.T) {
	svc := newTestAuthService(nil, nil, nil)

	err := svc.ChangePassword(context.Background(), models.ChangePasswordRequest{
		UserID:      "missing",
		OldPassword: "oldpass",
		NewPassword: "brandnew",
	}, AuditMeta{})

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAuthService_ValidateToken(t *testing.T) {
	users := &fakeUserDirectory{
		byUsername: map[string]*models.User{
			"admin": {ID: "user-1", Username: "admin", Role: models.TypeAdmin, Type: models.TypeAdmin, PasswordHash: mustHash(t, "adminpass")},
		},
	}
	svc := newTestAuthService(nil, nil, users)

	result, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "adminpass"}, AuditMeta{})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.TypeAdmin, claims.Role)
	assert.Equal(t, models.TypeAdmin, claims.Type)
}

func TestAuthService_ValidateToken_Invalid(t *testing.T) {
	svc := newTestAuthService(nil, nil, nil)

	_, err := svc.ValidateToken("not-a-token")

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
