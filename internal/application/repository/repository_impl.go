package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/dfund/marketplace/internal/application/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const applicationColumns = `id, opportunity_id, candidate_id, title, goal_letter, referral_code_used,
	stage, is_draft, is_closed, submission_date, review_date, review_feedback, feedback_title,
	created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, app *domain.Application) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO applications (`+applicationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(app.ID),
		int64(app.OpportunityID),
		int64(app.CandidateID),
		app.Title,
		app.GoalLetter,
		app.ReferralCodeUsed,
		string(app.Stage),
		app.IsDraft,
		app.IsClosed,
		app.SubmissionDate,
		app.ReviewDate,
		app.ReviewFeedback,
		app.FeedbackTitle,
		app.CreatedAt,
		app.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Application, error) {
	stmt := db.WithContext(ctx).Model(&domain.Application{}).Where("id = ?", int64(id))
	if forUpdate {
		stmt = stmt.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	var apps []domain.Application
	if err := stmt.Limit(1).Find(&apps).Error; err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, nil
	}
	return &apps[0], nil
}

func (r *repo) FindByPair(ctx context.Context, db *gorm.DB, opportunityID, candidateID snowflake.ID) (*domain.Application, error) {
	var apps []domain.Application
	err := db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("opportunity_id = ? AND candidate_id = ?", int64(opportunityID), int64(candidateID)).
		Limit(1).
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, nil
	}
	return &apps[0], nil
}

// Save writes every mutable column of app in one statement.
func (r *repo) Save(ctx context.Context, db *gorm.DB, app *domain.Application) error {
	return db.WithContext(ctx).Exec(
		`UPDATE applications SET
			title = ?, goal_letter = ?, referral_code_used = ?,
			stage = ?, is_draft = ?, is_closed = ?,
			submission_date = ?, review_date = ?, review_feedback = ?, feedback_title = ?,
			updated_at = ?
		 WHERE id = ?`,
		app.Title,
		app.GoalLetter,
		app.ReferralCodeUsed,
		string(app.Stage),
		app.IsDraft,
		app.IsClosed,
		app.SubmissionDate,
		app.ReviewDate,
		app.ReviewFeedback,
		app.FeedbackTitle,
		app.UpdatedAt,
		int64(app.ID),
	).Error
}

type candidateRow struct {
	domain.Application
	CandidateFirstName string
	CandidateLastName  string
	CandidateEmail     string
	CandidateRole      string
}

func (r *repo) ListByOpportunity(ctx context.Context, db *gorm.DB, opportunityID snowflake.ID) ([]domain.ApplicationWithCandidate, error) {
	var rows []candidateRow
	err := db.WithContext(ctx).Raw(
		`SELECT a.*,
			u.first_name AS candidate_first_name,
			u.last_name AS candidate_last_name,
			u.email AS candidate_email,
			u.role AS candidate_role
		 FROM applications a
		 LEFT JOIN users u ON u.id = a.candidate_id
		 WHERE a.opportunity_id = ?
		 ORDER BY a.created_at DESC, a.id DESC`,
		int64(opportunityID),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.ApplicationWithCandidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ApplicationWithCandidate{
			Application: row.Application,
			Candidate: domain.CandidateSummary{
				ID:        row.CandidateID,
				FirstName: row.CandidateFirstName,
				LastName:  row.CandidateLastName,
				Email:     row.CandidateEmail,
				Role:      row.CandidateRole,
			},
		})
	}
	return out, nil
}

type opportunityRow struct {
	domain.Application
	OpportunityOwnerID int64
	OpportunityName    string
	OpportunitySlug    string
	OpportunityType    string
	OpportunityStatus  string
}

func (r *repo) ListByCandidate(ctx context.Context, db *gorm.DB, candidateID snowflake.ID) ([]domain.ApplicationWithOpportunity, error) {
	var rows []opportunityRow
	err := db.WithContext(ctx).Raw(
		`SELECT a.*,
			o.owner_id AS opportunity_owner_id,
			o.name AS opportunity_name,
			o.slug AS opportunity_slug,
			o.type AS opportunity_type,
			o.status AS opportunity_status
		 FROM applications a
		 LEFT JOIN opportunities o ON o.id = a.opportunity_id
		 WHERE a.candidate_id = ?
		 ORDER BY a.created_at DESC, a.id DESC`,
		int64(candidateID),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.ApplicationWithOpportunity, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ApplicationWithOpportunity{
			Application: row.Application,
			Opportunity: domain.OpportunitySummary{
				ID:      row.OpportunityID,
				OwnerID: snowflake.ID(row.OpportunityOwnerID),
				Name:    row.OpportunityName,
				Slug:    row.OpportunitySlug,
				Type:    row.OpportunityType,
				Status:  row.OpportunityStatus,
			},
		})
	}
	return out, nil
}
