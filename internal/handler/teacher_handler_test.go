package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusetu/school-onboard-api/internal/dto"
	"github.com/edusetu/school-onboard-api/internal/models"
	"github.com/edusetu/school-onboard-api/internal/service"
)

type teacherRepoStub struct {
	teachers map[string]*models.Teacher
}

func newTeacherRepoStub() *teacherRepoStub {
	return &teacherRepoStub{teachers: make(map[string]*models.Teacher)}
}

func (m *teacherRepoStub) ListByScope(ctx context.Context, principalID, schoolID string) ([]models.Teacher, error) {
	out := []models.Teacher{}
	for _, t := range m.teachers {
		if t.PrincipalID == principalID && t.SchoolID == schoolID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *teacherRepoStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	t, ok := m.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (m *teacherRepoStub) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return false, nil
}

func (m *teacherRepoStub) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = teacher.TeacherCode
	}
	copied := *teacher
	m.teachers[teacher.ID] = &copied
	return nil
}

func (m *teacherRepoStub) Update(ctx context.Context, teacher *models.Teacher) error {
	copied := *teacher
	m.teachers[teacher.ID] = &copied
	return nil
}

func (m *teacherRepoStub) Delete(ctx context.Context, id, principalID, schoolID string) error {
	delete(m.teachers, id)
	return nil
}

type studentCounterStub struct {
	count int
}

func (m *studentCounterStub) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	return m.count, nil
}

func newTeacherHandlerFixture(counter *studentCounterStub) (*TeacherHandler, *teacherRepoStub) {
	repo := newTeacherRepoStub()
	if counter == nil {
		counter = &studentCounterStub{}
	}
	svc := service.NewTeacherService(repo, counter, validator.New(), zap.NewNop(), 5)
	return NewTeacherHandler(svc), repo
}

func validTeacher() dto.TeacherRequest {
	return dto.TeacherRequest{
		Name:     "Meera Iyer",
		Email:    "meera@example.com",
		Subject:  "Mathematics",
		Password: "password123",
	}
}

func TestTeacherHandlerCreate(t *testing.T) {
	handler, repo := newTeacherHandlerFixture(nil)

	payload, _ := json.Marshal(validTeacher())
	c, w := testContext(t, http.MethodPost, "/teachers", payload, principalClaims())
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, repo.teachers, 1)
	assert.Regexp(t, `"teacher_code":"TEA[0-9A-Z]{6}"`, w.Body.String())
}

func TestTeacherHandlerCreateUnauthenticated(t *testing.T) {
	handler, _ := newTeacherHandlerFixture(nil)

	payload, _ := json.Marshal(dto.TeacherRequest{Name: "x"})
	c, w := testContext(t, http.MethodPost, "/teachers", payload, nil)
	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTeacherHandlerList(t *testing.T) {
	handler, repo := newTeacherHandlerFixture(nil)
	repo.teachers["t1"] = &models.Teacher{ID: "t1", Name: "Meera Iyer", PrincipalID: "p1", SchoolID: "s1"}
	repo.teachers["t2"] = &models.Teacher{ID: "t2", Name: "Other School", PrincipalID: "p2", SchoolID: "s2"}

	c, w := testContext(t, http.MethodGet, "/teachers", nil, principalClaims())
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Meera Iyer")
	assert.NotContains(t, w.Body.String(), "Other School")
}

func TestTeacherHandlerUpdateNotFound(t *testing.T) {
	handler, _ := newTeacherHandlerFixture(nil)

	payload, _ := json.Marshal(validTeacher())
	c, w := testContext(t, http.MethodPut, "/teachers/missing", payload, principalClaims())
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Update(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTeacherHandlerDeleteBlocked(t *testing.T) {
	handler, repo := newTeacherHandlerFixture(&studentCounterStub{count: 3})
	repo.teachers["t1"] = &models.Teacher{ID: "t1", PrincipalID: "p1", SchoolID: "s1"}

	c, w := testContext(t, http.MethodDelete, "/teachers/t1", nil, principalClaims())
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	handler.Delete(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, repo.teachers, 1)
}

func TestTeacherHandlerDelete(t *testing.T) {
	handler, repo := newTeacherHandlerFixture(nil)
	repo.teachers["t1"] = &models.Teacher{ID: "t1", PrincipalID: "p1", SchoolID: "s1"}

	c, w := testContext(t, http.MethodDelete, "/teachers/t1", nil, principalClaims())
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, repo.teachers)
}
