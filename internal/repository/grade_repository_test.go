package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradeRepositoryFindByEnrollment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	rows := sqlmock.NewRows([]string{"enrollment_id", "first_partial", "second_partial", "final_grade"}).
		AddRow("enr-1", "6.50", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM grades WHERE enrollment_id = $1")).
		WithArgs("enr-1").
		WillReturnRows(rows)

	snapshot, err := repo.FindByEnrollment(context.Background(), "enr-1")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	require.NotNil(t, snapshot.FirstPartial)
	assert.InDelta(t, 6.5, *snapshot.FirstPartial, 1e-9)
	assert.Nil(t, snapshot.SecondPartial)
	assert.Nil(t, snapshot.FinalGrade)
}

func TestGradeRepositoryFindByEnrollmentNoRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM grades")).
		WithArgs("enr-2").
		WillReturnError(sql.ErrNoRows)

	snapshot, err := repo.FindByEnrollment(context.Background(), "enr-2")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}
