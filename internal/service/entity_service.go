package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bclabs/school-portal-api/internal/models"
	"github.com/bclabs/school-portal-api/internal/repository"
	appErrors "github.com/bclabs/school-portal-api/pkg/errors"
)

// Entity collection names, matching the path segment used by clients.
const (
	EntityStudents       = "schoolPortalStudents"
	EntityStaff          = "schoolPortalStaff"
	EntitySubjects       = "schoolPortalSubjects"
	EntityResults        = "schoolPortalResults"
	EntityPendingResults = "schoolPortalPendingResults"
	EntityFeeRecords     = "schoolPortalFeeRecords"
	EntityAttendance     = "schoolPortalAttendance"
	EntityTimetables     = "schoolPortalTimetables"
	EntityDigitalLibrary = "schoolPortalDigitalLibrary"
	EntityAdminMessages  = "schoolPortalAdminMessages"
	EntityPromotions     = "schoolPortalPromotions"
	EntityCalendarEvents = "schoolPortalCalendarEvents"
	EntityCertifications = "schoolPortalCertifications"
)

type entityKind int

const (
	kindStudents entityKind = iota
	kindStaff
	kindGeneric
)

// Registry is the closed mapping from entity name to storage kind. Unknown
// names are rejected, at startup for registrations and per request for
// lookups.
func defaultRegistry() map[string]entityKind {
	return map[string]entityKind{
		EntityStudents:       kindStudents,
		EntityStaff:          kindStaff,
		EntitySubjects:       kindGeneric,
		EntityResults:        kindGeneric,
		EntityPendingResults: kindGeneric,
		EntityFeeRecords:     kindGeneric,
		EntityAttendance:     kindGeneric,
		EntityTimetables:     kindGeneric,
		EntityDigitalLibrary: kindGeneric,
		EntityAdminMessages:  kindGeneric,
		EntityPromotions:     kindGeneric,
		EntityCalendarEvents: kindGeneric,
		EntityCertifications: kindGeneric,
	}
}

type entityStudentRepo interface {
	List(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type entityStaffRepo interface {
	List(ctx context.Context) ([]models.Staff, error)
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	Create(ctx context.Context, staff *models.Staff) error
	Update(ctx context.Context, staff *models.Staff) error
	Delete(ctx context.Context, id string) error
}

type entityRecordRepo interface {
	List(ctx context.Context, entity string) ([]models.Record, error)
	Create(ctx context.Context, entity string, doc models.Document) (*models.Record, error)
	Update(ctx context.Context, entity, id string, patch models.Document) (*models.Record, error)
	Delete(ctx context.Context, entity, id string) error
	ExistsAttendanceMark(ctx context.Context, entity string, doc models.Document) (bool, error)
}

type entityListCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, key string)
}

type cacheObserver interface {
	CacheHit()
	CacheMiss()
}

// EntityService dispatches generic CRUD over the registered collections,
// applying the pre-create normalization shims for students and staff.
type EntityService struct {
	registry map[string]entityKind
	students entityStudentRepo
	staff    entityStaffRepo
	records  entityRecordRepo
	cache    entityListCache
	metrics  cacheObserver
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewEntityService constructs the gateway over the default registry. A nil
// cache disables list caching.
func NewEntityService(students entityStudentRepo, staff entityStaffRepo, records entityRecordRepo, cache entityListCache, metrics cacheObserver, cacheTTL time.Duration, logger *zap.Logger) *EntityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityService{
		registry: defaultRegistry(),
		students: students,
		staff:    staff,
		records:  records,
		cache:    cache,
		metrics:  metrics,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Entities returns the registered collection names.
func (s *EntityService) Entities() []string {
	names := make([]string, 0, len(s.registry))
	for name := range s.registry {
		names = append(names, name)
	}
	return names
}

func (s *EntityService) kind(entity string) (entityKind, error) {
	kind, ok := s.registry[entity]
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrEntityNotFound, "entity not found")
	}
	return kind, nil
}

// List returns every record of the named collection.
func (s *EntityService) List(ctx context.Context, entity string) (interface{}, error) {
	kind, err := s.kind(entity)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		var cached json.RawMessage
		if err := s.cache.Get(ctx, repository.ListKey(entity), &cached); err == nil {
			if s.metrics != nil {
				s.metrics.CacheHit()
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.CacheMiss()
		}
	}

	var payload interface{}
	switch kind {
	case kindStudents:
		students, err := s.students.List(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
		}
		payload = students
	case kindStaff:
		staff, err := s.staff.List(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
		}
		payload = staff
	default:
		records, err := s.records.List(ctx, entity)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
		}
		payload = records
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, repository.ListKey(entity), payload, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache entity list", zap.String("entity", entity), zap.Error(err))
		}
	}

	return payload, nil
}

// Create persists a new document in the named collection. Student and staff
// creation runs the field-normalization shims and the default-password
// policy first.
func (s *EntityService) Create(ctx context.Context, entity string, doc models.Document) (interface{}, error) {
	kind, err := s.kind(entity)
	if err != nil {
		return nil, err
	}

	var created interface{}
	switch kind {
	case kindStudents:
		student, err := s.buildStudent(doc)
		if err != nil {
			return nil, err
		}
		if err := s.students.Create(ctx, student); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, appErrors.Clone(appErrors.ErrDuplicateKey, "admission number already exists")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
		}
		created = student
	case kindStaff:
		staff, err := s.buildStaff(doc)
		if err != nil {
			return nil, err
		}
		if err := s.staff.Create(ctx, staff); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, appErrors.Clone(appErrors.ErrDuplicateKey, "staff id already exists")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create staff")
		}
		created = staff
	default:
		stripIdentity(doc)
		if entity == EntityAttendance {
			// Requires the complete natural key; a partial key would match
			// unrelated marks. Best effort only: two concurrent creates with
			// the same key can both pass, the key carries no unique index.
			if key, ok := attendanceKey(doc); ok {
				exists, err := s.records.ExistsAttendanceMark(ctx, entity, key)
				if err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance mark")
				}
				if exists {
					return nil, appErrors.Clone(appErrors.ErrDuplicateKey, "attendance already marked for this student")
				}
			}
		}
		record, err := s.records.Create(ctx, entity, doc)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create record")
		}
		created = record
	}

	s.invalidate(ctx, entity)
	return created, nil
}

// Update merges the supplied fields into an existing document.
func (s *EntityService) Update(ctx context.Context, entity, id string, doc models.Document) (interface{}, error) {
	kind, err := s.kind(entity)
	if err != nil {
		return nil, err
	}

	stripIdentity(doc)

	var updated interface{}
	switch kind {
	case kindStudents:
		student, err := s.students.FindByID(ctx, id)
		if err != nil {
			return nil, mapNotFound(err, "student not found", "failed to load student")
		}
		delete(doc, "admissionNo")
		normalizeStudentFields(doc)
		applyStudentFields(student, doc)
		if err := s.students.Update(ctx, student); err != nil {
			return nil, mapNotFound(err, "student not found", "failed to update student")
		}
		updated = student
	case kindStaff:
		staff, err := s.staff.FindByID(ctx, id)
		if err != nil {
			return nil, mapNotFound(err, "staff not found", "failed to load staff")
		}
		delete(doc, "staffId")
		normalizeStaffFields(doc)
		applyStaffFields(staff, doc)
		if err := s.staff.Update(ctx, staff); err != nil {
			return nil, mapNotFound(err, "staff not found", "failed to update staff")
		}
		updated = staff
	default:
		record, err := s.records.Update(ctx, entity, id, doc)
		if err != nil {
			return nil, mapNotFound(err, "record not found", "failed to update record")
		}
		updated = record
	}

	s.invalidate(ctx, entity)
	return updated, nil
}

// Delete removes a document from the named collection. There is no
// cross-entity cascade.
func (s *EntityService) Delete(ctx context.Context, entity, id string) error {
	kind, err := s.kind(entity)
	if err != nil {
		return err
	}

	switch kind {
	case kindStudents:
		err = s.students.Delete(ctx, id)
	case kindStaff:
		err = s.staff.Delete(ctx, id)
	default:
		err = s.records.Delete(ctx, entity, id)
	}
	if err != nil {
		return mapNotFound(err, "record not found", "failed to delete record")
	}

	s.invalidate(ctx, entity)
	return nil
}

func (s *EntityService) invalidate(ctx context.Context, entity string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, repository.ListKey(entity))
	}
}

func (s *EntityService) buildStudent(doc models.Document) (*models.Student, error) {
	stripIdentity(doc)
	normalizeStudentFields(doc)

	student := &models.Student{Type: models.TypeStudent}
	applyStudentFields(student, doc)
	if student.AdmissionNo == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "admissionNo is required")
	}

	plaintext := docString(doc, "password")
	if plaintext == "" {
		plaintext = DefaultPassword
	}
	hash, err := HashPassword(plaintext)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	student.PasswordHash = hash

	return student, nil
}

func (s *EntityService) buildStaff(doc models.Document) (*models.Staff, error) {
	stripIdentity(doc)
	normalizeStaffFields(doc)

	staff := &models.Staff{Type: models.TypeStaff}
	applyStaffFields(staff, doc)
	if staff.StaffID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "staffId is required")
	}

	plaintext := docString(doc, "password")
	if plaintext == "" {
		plaintext = DefaultPassword
	}
	hash, err := HashPassword(plaintext)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	staff.PasswordHash = hash

	return staff, nil
}

// normalizeStudentFields maps legacy client field names onto the stored
// ones and splits a combined name into first/last parts, last token treated
// as the surname.
func normalizeStudentFields(doc models.Document) {
	renameField(doc, "classLevel", "studentClass")
	renameField(doc, "guardianPhone", "parentPhone")
	renameField(doc, "guardianName", "parentName")

	if name := docString(doc, "name"); name != "" {
		first, last := splitName(name)
		if docString(doc, "firstName") == "" {
			doc["firstName"] = first
		}
		if docString(doc, "lastName") == "" {
			doc["lastName"] = last
		}
		delete(doc, "name")
	}
}

func normalizeStaffFields(doc models.Document) {
	if name := docString(doc, "name"); name != "" {
		first, last := splitName(name)
		if docString(doc, "firstname") == "" {
			doc["firstname"] = first
		}
		if docString(doc, "surname") == "" {
			doc["surname"] = last
		}
		delete(doc, "name")
	}
}

func applyStudentFields(student *models.Student, doc models.Document) {
	setString(doc, "admissionNo", &student.AdmissionNo)
	setString(doc, "firstName", &student.FirstName)
	setString(doc, "lastName", &student.LastName)
	setString(doc, "studentClass", &student.StudentClass)
	setString(doc, "gender", &student.Gender)
	setString(doc, "parentName", &student.ParentName)
	setString(doc, "parentPhone", &student.ParentPhone)
	setString(doc, "address", &student.Address)
}

func applyStaffFields(staff *models.Staff, doc models.Document) {
	setString(doc, "staffId", &staff.StaffID)
	setString(doc, "surname", &staff.Surname)
	setString(doc, "firstname", &staff.Firstname)
	setString(doc, "role", &staff.Role)
	setString(doc, "department", &staff.Department)
	setString(doc, "contactEmail", &staff.ContactEmail)
	setString(doc, "contactPhone", &staff.ContactPhone)
	if v, ok := doc["assignedSubjects"]; ok {
		staff.AssignedSubjects = toStringSlice(v)
	}
	if v, ok := doc["assignedClasses"]; ok {
		staff.AssignedClasses = toStringSlice(v)
	}
}

// attendanceKeyFields form the natural key of an attendance mark.
var attendanceKeyFields = []string{"date", "class", "admissionNo", "session", "term"}

// attendanceKey extracts the natural key of an attendance mark. It reports
// false unless every key field is present.
func attendanceKey(doc models.Document) (models.Document, bool) {
	key := make(models.Document, len(attendanceKeyFields))
	for _, field := range attendanceKeyFields {
		v, ok := doc[field]
		if !ok {
			return nil, false
		}
		key[field] = v
	}
	return key, true
}

// stripIdentity removes client-supplied identity and credential-state fields
// before persistence.
func stripIdentity(doc models.Document) {
	delete(doc, "id")
	delete(doc, "_id")
	delete(doc, "isActivated")
	delete(doc, "activatedAt")
	delete(doc, "timestamp")
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

func renameField(doc models.Document, from, to string) {
	if v, ok := doc[from]; ok {
		if _, exists := doc[to]; !exists {
			doc[to] = v
		}
		delete(doc, from)
	}
}

func docString(doc models.Document, key string) string {
	if v, ok := doc[key]; ok {
		switch s := v.(type) {
		case string:
			return s
		default:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

func setString(doc models.Document, key string, dest *string) {
	if v, ok := doc[key]; ok {
		if s, ok := v.(string); ok {
			*dest = s
		}
	}
}

func toStringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func mapNotFound(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMsg)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internalMsg)
}
