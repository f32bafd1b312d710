package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/dfund/marketplace/internal/application/domain"
	auditdomain "github.com/dfund/marketplace/internal/audit/domain"
	"github.com/dfund/marketplace/internal/clock"
	"github.com/dfund/marketplace/internal/config"
	"github.com/dfund/marketplace/internal/observability/metrics"
	"github.com/dfund/marketplace/internal/principal"
	"github.com/dfund/marketplace/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Opportunities domain.OpportunityDirectory
	Clock         clock.Clock
	Limits        *config.LimitsHolder
	Notifier      domain.Notifier     `optional:"true"`
	Audit         auditdomain.Service `optional:"true"`
	Metrics       *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	opportunities domain.OpportunityDirectory
	clock         clock.Clock
	limits        *config.LimitsHolder
	notifier      domain.Notifier
	audit         auditdomain.Service
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("application.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		opportunities: p.Opportunities,
		clock:         p.Clock,
		limits:        p.Limits,
		notifier:      p.Notifier,
		audit:         p.Audit,
		metrics:       p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Application, error) {
	callerID, ok := principal.UserIDFromContext(ctx)
	if !ok {
		return domain.Application{}, domain.ErrUnauthenticated
	}
	if req.OpportunityID == 0 {
		return domain.Application{}, domain.ErrInvalidOpportunity
	}
	if err := s.validateContent(req.Title, req.GoalLetter, req.ReferralCodeUsed); err != nil {
		return domain.Application{}, err
	}

	if _, err := s.opportunities.GetOwnerID(ctx, req.OpportunityID); err != nil {
		return domain.Application{}, err
	}

	existing, err := s.repo.FindByPair(ctx, s.db, req.OpportunityID, callerID)
	if err != nil {
		return domain.Application{}, err
	}
	if existing != nil {
		return domain.Application{}, domain.ErrConflict
	}

	now := s.clock.Now()
	app := domain.Application{
		ID:               s.genID.Generate(),
		OpportunityID:    req.OpportunityID,
		CandidateID:      callerID,
		Title:            normalize(req.Title),
		GoalLetter:       normalize(req.GoalLetter),
		ReferralCodeUsed: normalize(req.ReferralCodeUsed),
		Stage:            domain.StageDraft,
		IsDraft:          true,
		IsClosed:         false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// A concurrent create for the same pair loses on the unique index.
	if err := s.repo.Insert(ctx, s.db, &app); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Application{}, domain.ErrConflict
		}
		return domain.Application{}, err
	}

	s.log.Info("application created",
		zap.String("application_id", app.ID.String()),
		zap.String("opportunity_id", app.OpportunityID.String()),
	)
	s.recordTransition(ctx, callerID, auditdomain.ActionApplicationCreate, app, nil)
	return app, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.Application, error) {
	callerID, ok := principal.UserIDFromContext(ctx)
	if !ok {
		return domain.Application{}, domain.ErrUnauthenticated
	}
	if req.ID == 0 {
		return domain.Application{}, domain.ErrInvalidID
	}

	var updated domain.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.repo.FindByID(ctx, tx, req.ID, true)
		if err != nil {
			return err
		}
		if app == nil {
			return domain.ErrNotFound
		}
		if app.CandidateID != callerID {
			return domain.ErrForbiddenUpdate
		}
		if app.Stage != domain.StageDraft {
			return domain.ErrNotDraftUpdate
		}
		if err := s.validateContent(req.Title, req.GoalLetter, req.ReferralCodeUsed); err != nil {
			return err
		}

		if req.Title != nil {
			app.Title = normalize(req.Title)
		}
		if req.GoalLetter != nil {
			app.GoalLetter = normalize(req.GoalLetter)
		}
		if req.ReferralCodeUsed != nil {
			app.ReferralCodeUsed = normalize(req.ReferralCodeUsed)
		}
		app.UpdatedAt = s.clock.Now()

		if err := s.repo.Save(ctx, tx, app); err != nil {
			return err
		}
		updated = *app
		return nil
	})
	if err != nil {
		return domain.Application{}, err
	}

	s.recordTransition(ctx, callerID, auditdomain.ActionApplicationUpdate, updated, nil)
	return updated, nil
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (domain.Application, error) {
	callerID, ok := principal.UserIDFromContext(ctx)
	if !ok {
		return domain.Application{}, domain.ErrUnauthenticated
	}
	if req.ID == 0 {
		return domain.Application{}, domain.ErrInvalidID
	}

	var submitted domain.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.repo.FindByID(ctx, tx, req.ID, true)
		if err != nil {
			return err
		}
		if app == nil {
			return domain.ErrNotFound
		}
		if app.CandidateID != callerID {
			return domain.ErrForbiddenSubmit
		}
		if app.Stage != domain.StageDraft {
			return domain.ErrNotDraftSubmit
		}

		now := s.clock.Now()
		app.Stage = domain.StageSubmitted
		app.IsDraft = false
		app.SubmissionDate = &now
		app.UpdatedAt = now

		if err := s.repo.Save(ctx, tx, app); err != nil {
			return err
		}
		submitted = *app
		return nil
	})
	if err != nil {
		return domain.Application{}, err
	}

	s.log.Info("application submitted", zap.String("application_id", submitted.ID.String()))
	s.recordTransition(ctx, callerID, auditdomain.ActionApplicationSubmit, submitted, nil)

	ownerID, err := s.opportunities.GetOwnerID(ctx, submitted.OpportunityID)
	if err != nil {
		s.log.Warn("submission notification skipped",
			zap.String("application_id", submitted.ID.String()),
			zap.Error(err),
		)
		return submitted, nil
	}
	if s.notifier != nil {
		s.notifier.NotifyOwnerOfSubmission(ctx, submitted, domain.OpportunityRef{
			ID:      submitted.OpportunityID,
			OwnerID: ownerID,
		})
	}
	return submitted, nil
}

func (s *Service) Review(ctx context.Context, req domain.ReviewRequest) (domain.Application, error) {
	callerID, ok := principal.UserIDFromContext(ctx)
	if !ok {
		return domain.Application{}, domain.ErrUnauthenticated
	}
	if req.ID == 0 {
		return domain.Application{}, domain.ErrInvalidID
	}

	// Ownership of an opportunity never changes, so it is safe to resolve it
	// before taking the row lock.
	current, err := s.repo.FindByID(ctx, s.db, req.ID, false)
	if err != nil {
		return domain.Application{}, err
	}
	if current == nil {
		return domain.Application{}, domain.ErrNotFound
	}
	ownerID, err := s.opportunities.GetOwnerID(ctx, current.OpportunityID)
	if err != nil {
		return domain.Application{}, err
	}
	if ownerID != callerID {
		return domain.Application{}, domain.ErrForbiddenReview
	}
	if !req.Stage.IsReviewTarget() {
		return domain.Application{}, domain.ErrInvalidStage
	}
	feedbackMax := s.limits.Get().Applications.FeedbackMaxLength
	if tooLong(req.ReviewFeedback, feedbackMax) {
		return domain.Application{}, domain.FieldTooLong("review_feedback")
	}
	if tooLong(req.FeedbackTitle, s.limits.Get().Applications.TitleMaxLength) {
		return domain.Application{}, domain.FieldTooLong("feedback_title")
	}

	var reviewed domain.Application
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := s.repo.FindByID(ctx, tx, req.ID, true)
		if err != nil {
			return err
		}
		if app == nil {
			return domain.ErrNotFound
		}
		if app.Stage == domain.StageDraft {
			return domain.ErrNotSubmitted
		}
		if app.IsClosed || app.Stage.IsTerminal() {
			return domain.ErrClosed
		}

		// Concurrent reviews are not serialized beyond the row lock: the
		// last committed review wins.
		now := s.clock.Now()
		app.Stage = req.Stage
		app.IsDraft = false
		app.IsClosed = req.Stage.IsTerminal()
		app.ReviewDate = &now
		if req.ReviewFeedback != nil {
			app.ReviewFeedback = normalize(req.ReviewFeedback)
		}
		if req.FeedbackTitle != nil {
			app.FeedbackTitle = normalize(req.FeedbackTitle)
		}
		app.UpdatedAt = now

		if err := s.repo.Save(ctx, tx, app); err != nil {
			return err
		}
		reviewed = *app
		return nil
	})
	if err != nil {
		return domain.Application{}, err
	}

	s.log.Info("application reviewed",
		zap.String("application_id", reviewed.ID.String()),
		zap.String("stage", string(reviewed.Stage)),
	)
	s.recordTransition(ctx, callerID, auditdomain.ActionApplicationReview, reviewed, map[string]any{
		"feedback_title": stringValue(reviewed.FeedbackTitle),
	})

	if s.notifier != nil {
		s.notifier.NotifyCandidateOfReview(ctx, reviewed, domain.OpportunityRef{
			ID:      reviewed.OpportunityID,
			OwnerID: ownerID,
		}, reviewed.Stage == domain.StageSuccess)
	}
	return reviewed, nil
}

func (s *Service) ListByOpportunityForOwner(ctx context.Context, req domain.ListByOpportunityRequest) ([]domain.ApplicationWithCandidate, error) {
	callerID, ok := principal.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	if req.OpportunityID == 0 {
		return nil, domain.ErrInvalidOpportunity
	}

	ownerID, err := s.opportunities.GetOwnerID(ctx, req.OpportunityID)
	if err != nil {
		return nil, err
	}
	if ownerID != callerID {
		return nil, domain.ErrForbidden
	}

	return s.repo.ListByOpportunity(ctx, s.db, req.OpportunityID)
}

func (s *Service) ListForCandidate(ctx context.Context, req domain.ListForCandidateRequest) ([]domain.ApplicationWithOpportunity, error) {
	callerID, ok := principal.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	if req.CandidateID == 0 {
		return nil, domain.ErrInvalidID
	}
	if req.CandidateID != callerID {
		return nil, domain.ErrForbidden
	}

	return s.repo.ListByCandidate(ctx, s.db, req.CandidateID)
}

func (s *Service) validateContent(title, goalLetter, referralCode *string) error {
	limits := s.limits.Get().Applications
	switch {
	case tooLong(title, limits.TitleMaxLength):
		return domain.FieldTooLong("title")
	case tooLong(goalLetter, limits.GoalLetterMaxLength):
		return domain.FieldTooLong("goal_letter")
	case tooLong(referralCode, limits.ReferralCodeMaxLength):
		return domain.FieldTooLong("referral_code_used")
	}
	return nil
}

func (s *Service) recordTransition(ctx context.Context, actorID snowflake.ID, action string, app domain.Application, extra map[string]any) {
	s.metrics.RecordApplicationTransition(ctx, action, string(app.Stage))
	if s.audit == nil {
		return
	}

	metadata := map[string]any{
		"opportunity_id": app.OpportunityID.String(),
		"stage":          string(app.Stage),
	}
	if app.ReferralCodeUsed != nil {
		metadata["referral_code_used"] = *app.ReferralCodeUsed
	}
	for k, v := range extra {
		metadata[k] = v
	}

	actor := actorID.String()
	target := app.ID.String()
	if err := s.audit.AuditLog(ctx, auditdomain.ActorTypeUser, &actor, action, auditdomain.TargetTypeApplication, &target, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

// IsValidationError reports whether err is a caller input error rather than
// an authorization or state outcome.
func IsValidationError(err error) bool {
	return errors.Is(err, domain.ErrFieldTooLong) ||
		errors.Is(err, domain.ErrInvalidID) ||
		errors.Is(err, domain.ErrInvalidOpportunity) ||
		errors.Is(err, domain.ErrInvalidStage)
}

func normalize(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func tooLong(value *string, max int) bool {
	if value == nil || max <= 0 {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(*value)) > max
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
