package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bclabs/school-portal-api/internal/models"
	"github.com/bclabs/school-portal-api/internal/service"
)

type stubStudentRepo struct {
	students []models.Student
	created  []*models.Student
	deleted  []string
}

func (s *stubStudentRepo) List(_ context.Context) ([]models.Student, error) {
	return s.students, nil
}

func (s *stubStudentRepo) FindByID(_ context.Context, _ string) (*models.Student, error) {
	return nil, sql.ErrNoRows
}

func (s *stubStudentRepo) Create(_ context.Context, student *models.Student) error {
	student.ID = "new-student"
	s.created = append(s.created, student)
	return nil
}

func (s *stubStudentRepo) Update(_ context.Context, _ *models.Student) error {
	return nil
}

func (s *stubStudentRepo) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubStaffRepo struct{}

func (s *stubStaffRepo) List(_ context.Context) ([]models.Staff, error) { return nil, nil }

func (s *stubStaffRepo) FindByID(_ context.Context, _ string) (*models.Staff, error) {
	return nil, sql.ErrNoRows
}

func (s *stubStaffRepo) Create(_ context.Context, _ *models.Staff) error { return nil }
func (s *stubStaffRepo) Update(_ context.Context, _ *models.Staff) error { return nil }
func (s *stubStaffRepo) Delete(_ context.Context, _ string) error        { return nil }

type stubRecordRepo struct {
	records []models.Record
	deleted []string
}

func (s *stubRecordRepo) List(_ context.Context, _ string) ([]models.Record, error) {
	return s.records, nil
}

func (s *stubRecordRepo) Create(_ context.Context, entity string, doc models.Document) (*models.Record, error) {
	return &models.Record{ID: "rec-1", Entity: entity, Doc: doc, CreatedAt: time.Now().UTC()}, nil
}

func (s *stubRecordRepo) Update(_ context.Context, entity, id string, patch models.Document) (*models.Record, error) {
	return &models.Record{ID: id, Entity: entity, Doc: patch}, nil
}

func (s *stubRecordRepo) Delete(_ context.Context, _, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubRecordRepo) ExistsAttendanceMark(_ context.Context, _ string, _ models.Document) (bool, error) {
	return false, nil
}

func newEntityHandler(students *stubStudentRepo, records *stubRecordRepo) *EntityHandler {
	if students == nil {
		students = &stubStudentRepo{}
	}
	if records == nil {
		records = &stubRecordRepo{}
	}
	entities := service.NewEntityService(students, &stubStaffRepo{}, records, nil, nil, time.Minute, zap.NewNop())
	return NewEntityHandler(entities, service.NewExportService(entities))
}

func entityRequest(c *gin.Context, method, path, body string, params gin.Params) {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Params = params
}

func TestEntityHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEntityHandler(&stubStudentRepo{
		students: []models.Student{{ID: "id-1", AdmissionNo: "STU-001", FirstName: "Ada"}},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	entityRequest(c, http.MethodGet, "/api/schoolPortalStudents", "", gin.Params{{Key: "entity", Value: "schoolPortalStudents"}})

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "STU-001", body[0]["admissionNo"])
}

func TestEntityHandlerListUnknownEntity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEntityHandler(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	entityRequest(c, http.MethodGet, "/api/schoolPortalUnknown", "", gin.Params{{Key: "entity", Value: "schoolPortalUnknown"}})

	handler.List(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "message")
}

func TestEntityHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	students := &stubStudentRepo{}
	handler := newEntityHandler(students, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	entityRequest(c, http.MethodPost, "/api/schoolPortalStudents",
		`{"admissionNo":"STU-001","firstName":"Ada","lastName":"Lovelace"}`,
		gin.Params{{Key: "entity", Value: "schoolPortalStudents"}})

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, students.created, 1)
	assert.Equal(t, "STU-001", students.created[0].AdmissionNo)
}

func TestEntityHandlerCreateMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEntityHandler(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	entityRequest(c, http.MethodPost, "/api/schoolPortalStudents", `{"admissionNo":`,
		gin.Params{{Key: "entity", Value: "schoolPortalStudents"}})

	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntityHandlerUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEntityHandler(nil, &stubRecordRepo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	entityRequest(c, http.MethodPut, "/api/schoolPortalSubjects/rec-1", `{"subjectName":"Physics"}`,
		gin.Params{{Key: "entity", Value: "schoolPortalSubjects"}, {Key: "id", Value: "rec-1"}})

	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Physics")
}

func TestEntityHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	records := &stubRecordRepo{}
	handler := newEntityHandler(nil, records)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	entityRequest(c, http.MethodDelete, "/api/schoolPortalSubjects/rec-1", "",
		gin.Params{{Key: "entity", Value: "schoolPortalSubjects"}, {Key: "id", Value: "rec-1"}})

	handler.Delete(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"rec-1"}, records.deleted)
}

func TestEntityHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEntityHandler(&stubStudentRepo{
		students: []models.Student{{ID: "id-1", AdmissionNo: "STU-001", FirstName: "Ada"}},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	entityRequest(c, http.MethodGet, "/api/schoolPortalStudents/export?format=csv", "",
		gin.Params{{Key: "entity", Value: "schoolPortalStudents"}})

	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "schoolPortalStudents.csv")
	assert.Contains(t, w.Body.String(), "STU-001")
}

func TestEntityHandlerExportBadFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEntityHandler(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	entityRequest(c, http.MethodGet, "/api/schoolPortalStudents/export?format=xlsx", "",
		gin.Params{{Key: "entity", Value: "schoolPortalStudents"}})

	handler.Export(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
