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

func testScope() models.RosterScope {
	return models.RosterScope{PrincipalID: "p1", SchoolID: "s1", TeacherID: "t1"}
}

func TestListStudentsByScope(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_code", "name", "roll_no", "class", "section", "parent_email", "parent_phone", "status", "principal_id", "school_id", "teacher_id", "is_final_submitted", "created_at", "updated_at"}).
		AddRow("1", "STU000001", "Asha", "12", "5", "B", "asha@example.com", "9000000001", "active", "p1", "s1", "t1", false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE principal_id = $1 AND school_id = $2 AND teacher_id = $3 ORDER BY created_at ASC")).
		WithArgs("p1", "s1", "t1").
		WillReturnRows(rows)

	students, err := repo.ListByScope(context.Background(), testScope())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "STU000001", students[0].StudentCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnyFinalized(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM students WHERE principal_id = $1 AND school_id = $2 AND teacher_id = $3 AND is_final_submitted = true)")).
		WithArgs("p1", "s1", "t1").
		WillReturnRows(rows)

	locked, err := repo.AnyFinalized(context.Background(), testScope())
	require.NoError(t, err)
	assert.True(t, locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStudentFillsDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{
		StudentCode: "STU000002",
		Name:        "Ravi",
		Class:       "5",
		ParentEmail: "ravi@example.com",
		PrincipalID: "p1",
		SchoolID:    "s1",
		TeacherID:   "t1",
	}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBatchRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO students").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	students := []models.Student{
		{StudentCode: "STU000003", Name: "A", Class: "5", ParentEmail: "a@example.com", PrincipalID: "p1", SchoolID: "s1", TeacherID: "t1"},
		{StudentCode: "STU000004", Name: "B", Class: "5", ParentEmail: "b@example.com", PrincipalID: "p1", SchoolID: "s1", TeacherID: "t1"},
	}
	err := repo.CreateBatch(context.Background(), students)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET name").WillReturnResult(sqlmock.NewResult(0, 1))

	student := &models.Student{ID: "1", Name: "Asha", Class: "6", ParentEmail: "asha@example.com", Status: "active", PrincipalID: "p1", SchoolID: "s1", TeacherID: "t1"}
	err := repo.Update(context.Background(), student)
	require.NoError(t, err)
	assert.False(t, student.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeScopeReturnsLockedCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET is_final_submitted = true, updated_at = $4 WHERE principal_id = $1 AND school_id = $2 AND teacher_id = $3 AND is_final_submitted = false")).
		WithArgs("p1", "s1", "t1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	locked, err := repo.FinalizeScope(context.Background(), testScope())
	require.NoError(t, err)
	assert.Equal(t, int64(3), locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeScopeIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET is_final_submitted = true").
		WithArgs("p1", "s1", "t1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	locked, err := repo.FinalizeScope(context.Background(), testScope())
	require.NoError(t, err)
	assert.Zero(t, locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentExistsByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE student_code = $1 LIMIT 1")).
		WithArgs("STU000001").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE student_code = $1 LIMIT 1")).
		WithArgs("STU999999").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	taken, err := repo.ExistsByCode(context.Background(), "STU000001")
	require.NoError(t, err)
	assert.True(t, taken)

	free, err := repo.ExistsByCode(context.Background(), "STU999999")
	require.NoError(t, err)
	assert.False(t, free)
	assert.NoError(t, mock.ExpectationsWereMet())
}
