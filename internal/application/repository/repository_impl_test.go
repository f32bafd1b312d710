package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bwmarrin/snowflake"
	"github.com/dfund/marketplace/internal/application/domain"
	"github.com/dfund/marketplace/pkg/db"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return conn, mock
}

var applicationRowColumns = []string{
	"id", "opportunity_id", "candidate_id", "title", "goal_letter", "referral_code_used",
	"stage", "is_draft", "is_closed", "submission_date", "review_date", "review_feedback",
	"feedback_title", "created_at", "updated_at",
}

func TestFindByIDForUpdateLocksRow(t *testing.T) {
	conn, mock := newMockDB(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "applications" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(applicationRowColumns).
			AddRow(42, 7, 9, "Hello", nil, nil, "DRAFT", true, false, nil, nil, nil, nil, now, now))

	app, err := Provide().FindByID(context.Background(), conn, snowflake.ID(42), true)
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, snowflake.ID(7), app.OpportunityID)
	assert.Equal(t, snowflake.ID(9), app.CandidateID)
	assert.Equal(t, domain.StageDraft, app.Stage)
	require.NotNil(t, app.Title)
	assert.Equal(t, "Hello", *app.Title)
	assert.Nil(t, app.GoalLetter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDMissingReturnsNil(t *testing.T) {
	conn, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "applications" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(applicationRowColumns))

	app, err := Provide().FindByID(context.Background(), conn, snowflake.ID(1), false)
	require.NoError(t, err)
	assert.Nil(t, app)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveWritesMutableColumns(t *testing.T) {
	conn, mock := newMockDB(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	feedback := "Great fit"

	app := &domain.Application{
		ID:            42,
		Stage:         domain.StageSuccess,
		IsClosed:      true,
		ReviewDate:    &now,
		FeedbackTitle: &feedback,
		UpdatedAt:     now,
	}

	mock.ExpectExec(`UPDATE applications SET`).
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"SUCCESS", false, true,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			now, int64(42),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, Provide().Save(context.Background(), conn, app))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSurfacesUniqueViolation(t *testing.T) {
	conn, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO applications`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ux_applications_opportunity_candidate"})

	err := Provide().Insert(context.Background(), conn, &domain.Application{
		ID:            1,
		OpportunityID: 2,
		CandidateID:   3,
		Stage:         domain.StageDraft,
		IsDraft:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	require.Error(t, err)
	assert.True(t, db.IsDuplicateKeyErr(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByCandidateMapsOpportunity(t *testing.T) {
	conn, mock := newMockDB(t)
	now := time.Now().UTC()

	columns := append(append([]string{}, applicationRowColumns...),
		"opportunity_owner_id", "opportunity_name", "opportunity_slug", "opportunity_type", "opportunity_status")
	mock.ExpectQuery(`FROM applications a\s+LEFT JOIN opportunities o`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(42, 7, 9, nil, nil, nil, "SUBMITTED", false, false, now, nil, nil, nil, now, now,
				5, "Seed Program", "seed-program-abc123", "VENTURE_PROGRAM", "ACTIVE"))

	items, err := Provide().ListByCandidate(context.Background(), conn, snowflake.ID(9))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, snowflake.ID(7), items[0].Opportunity.ID)
	assert.Equal(t, snowflake.ID(5), items[0].Opportunity.OwnerID)
	assert.Equal(t, "Seed Program", items[0].Opportunity.Name)
	assert.Equal(t, domain.StageSubmitted, items[0].Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
