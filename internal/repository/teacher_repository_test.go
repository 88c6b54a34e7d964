package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusetu/school-onboard-api/internal/models"
)

func TestFindTeacherByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "teacher_code", "name", "email", "phone", "subject", "password_hash", "principal_id", "school_id", "created_at", "updated_at"}).
		AddRow("1", "TEA000001", "Meera", "meera@example.com", "9000000002", "Math", "hash", "p1", "s1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE teacher_code = $1 AND principal_id = $2 AND school_id = $3")).
		WithArgs("TEA000001", "p1", "s1").
		WillReturnRows(rows)

	teacher, err := repo.FindByCode(context.Background(), "TEA000001", "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Meera", teacher.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindTeacherByCodeWrongScope(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE teacher_code = $1 AND principal_id = $2 AND school_id = $3")).
		WithArgs("TEA000001", "p2", "s2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByCode(context.Background(), "TEA000001", "p2", "s2")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTeacher(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO teachers").WillReturnResult(sqlmock.NewResult(1, 1))

	teacher := &models.Teacher{TeacherCode: "TEA000002", Name: "Arun", Email: "arun@example.com", PrincipalID: "p1", SchoolID: "s1"}
	err := repo.Create(context.Background(), teacher)
	require.NoError(t, err)
	assert.NotEmpty(t, teacher.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTeacherIsScopeBounded(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teachers WHERE id = $1 AND principal_id = $2 AND school_id = $3")).
		WithArgs("1", "p1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "1", "p1", "s1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
