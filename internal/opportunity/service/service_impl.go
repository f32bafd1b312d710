package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/dfund/marketplace/internal/audit/domain"
	"github.com/dfund/marketplace/internal/clock"
	"github.com/dfund/marketplace/internal/config"
	"github.com/dfund/marketplace/internal/opportunity/domain"
	"github.com/dfund/marketplace/internal/principal"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Clock  clock.Clock
	Limits *config.LimitsHolder
	Audit  auditdomain.Service `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	clock  clock.Clock
	limits *config.LimitsHolder
	audit  auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("opportunity.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		clock:  p.Clock,
		limits: p.Limits,
		audit:  p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.OpportunityWithOwner, error) {
	ownerID, ok := principal.UserIDFromContext(ctx)
	if !ok {
		return domain.OpportunityWithOwner{}, domain.ErrUnauthenticated
	}

	limits := s.limits.Get().Opportunities
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.OpportunityWithOwner{}, domain.ErrInvalidName
	}
	if len(name) > limits.NameMaxLength {
		return domain.OpportunityWithOwner{}, domain.ErrNameTooLong
	}
	if !req.Type.Valid() {
		return domain.OpportunityWithOwner{}, domain.ErrInvalidType
	}
	status := req.Status
	if status == "" {
		status = domain.StatusDraft
	}
	if !status.Valid() {
		return domain.OpportunityWithOwner{}, domain.ErrInvalidStatus
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return domain.OpportunityWithOwner{}, domain.ErrInvalidDates
	}
	if negative(req.Price) || negative(req.ReferralAmount) {
		return domain.OpportunityWithOwner{}, domain.ErrInvalidPrice
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	opportunity := domain.Opportunity{
		ID:                id,
		OwnerID:           ownerID,
		Name:              name,
		Slug:              makeSlug(name, id),
		Punchline:         trimmed(req.Punchline),
		Description:       trimmed(req.Description),
		Type:              req.Type,
		Status:            status,
		City:              trimmed(req.City),
		Country:           trimmed(req.Country),
		Region:            trimmed(req.Region),
		Remote:            req.Remote,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		ExpirationDate:    req.ExpirationDate,
		URL:               trimmed(req.URL),
		Tags:              stringSlice(req.Tags),
		Industries:        stringSlice(req.Industries),
		Markets:           stringSlice(req.Markets),
		Price:             req.Price,
		Currency:          trimmed(req.Currency),
		ReferralAvailable: req.ReferralAvailable,
		ReferralAmount:    req.ReferralAmount,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Insert(ctx, s.db, &opportunity); err != nil {
		return domain.OpportunityWithOwner{}, err
	}

	s.recordAudit(ctx, ownerID, auditdomain.ActionOpportunityCreate, id, map[string]any{
		"type":   string(opportunity.Type),
		"status": string(opportunity.Status),
	})
	return s.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.OpportunityWithOwner, error) {
	callerID, ok := principal.UserIDFromContext(ctx)
	if !ok {
		return domain.OpportunityWithOwner{}, domain.ErrUnauthenticated
	}

	current, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return domain.OpportunityWithOwner{}, err
	}
	if current == nil {
		return domain.OpportunityWithOwner{}, domain.ErrNotFound
	}
	if current.OwnerID != callerID {
		return domain.OpportunityWithOwner{}, domain.ErrForbidden
	}

	fields, err := s.updateFields(req, current)
	if err != nil {
		return domain.OpportunityWithOwner{}, err
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.clock.Now()
		if err := s.repo.Update(ctx, s.db, req.ID, fields); err != nil {
			return domain.OpportunityWithOwner{}, err
		}
		s.recordAudit(ctx, callerID, auditdomain.ActionOpportunityUpdate, req.ID, map[string]any{
			"fields": fieldNames(fields),
		})
	}

	return s.GetByID(ctx, req.ID)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	callerID, ok := principal.UserIDFromContext(ctx)
	if !ok {
		return domain.ErrUnauthenticated
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownerID, found, err := s.repo.FindOwnerID(ctx, tx, id)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrNotFound
		}
		if ownerID != callerID {
			return domain.ErrForbidden
		}
		// Applications outlive their opportunity; close it instead.
		applications, err := s.repo.CountApplications(ctx, tx, id)
		if err != nil {
			return err
		}
		if applications > 0 {
			return domain.ErrHasApplications
		}
		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, callerID, auditdomain.ActionOpportunityDelete, id, nil)
	return nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.OpportunityWithOwner, error) {
	item, err := s.repo.FindWithOwner(ctx, s.db, id)
	if err != nil {
		return domain.OpportunityWithOwner{}, err
	}
	if item == nil {
		return domain.OpportunityWithOwner{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	limits := s.limits.Get().Opportunities
	if req.Skip < 0 || req.Take < 0 {
		return domain.ListResponse{}, domain.ErrInvalidPaging
	}
	take := req.Take
	if take == 0 {
		take = limits.DefaultPageSize
	}
	if take > limits.MaxPageSize {
		take = limits.MaxPageSize
	}
	if req.Status != "" && !req.Status.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidStatus
	}
	if req.Type != "" && !req.Type.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidType
	}

	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Status:  req.Status,
		Type:    req.Type,
		OwnerID: req.OwnerID,
		Search:  req.Search,
		Skip:    req.Skip,
		Take:    take,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	out := make([]domain.OpportunityWithOwner, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return domain.ListResponse{
		Opportunities: out,
		Total:         total,
		Skip:          req.Skip,
		Take:          take,
	}, nil
}

// GetOwnerID resolves the owner of an opportunity, or ErrNotFound.
func (s *Service) GetOwnerID(ctx context.Context, id snowflake.ID) (snowflake.ID, error) {
	ownerID, found, err := s.repo.FindOwnerID(ctx, s.db, id)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, domain.ErrNotFound
	}
	return ownerID, nil
}

func (s *Service) updateFields(req domain.UpdateRequest, current *domain.Opportunity) (map[string]any, error) {
	fields := map[string]any{}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		if len(name) > s.limits.Get().Opportunities.NameMaxLength {
			return nil, domain.ErrNameTooLong
		}
		fields["name"] = name
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, domain.ErrInvalidType
		}
		fields["type"] = string(*req.Type)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		fields["status"] = string(*req.Status)
	}
	if negative(req.Price) || negative(req.ReferralAmount) {
		return nil, domain.ErrInvalidPrice
	}

	start, end := current.StartDate, current.EndDate
	if req.StartDate != nil {
		start = req.StartDate
		fields["start_date"] = *req.StartDate
	}
	if req.EndDate != nil {
		end = req.EndDate
		fields["end_date"] = *req.EndDate
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, domain.ErrInvalidDates
	}
	if req.ExpirationDate != nil {
		fields["expiration_date"] = *req.ExpirationDate
	}

	setString := func(column string, value *string) {
		if value != nil {
			fields[column] = strings.TrimSpace(*value)
		}
	}
	setString("punchline", req.Punchline)
	setString("description", req.Description)
	setString("city", req.City)
	setString("country", req.Country)
	setString("region", req.Region)
	setString("url", req.URL)
	setString("currency", req.Currency)

	if req.Remote != nil {
		fields["remote"] = *req.Remote
	}
	if req.ReferralAvailable != nil {
		fields["referral_available"] = *req.ReferralAvailable
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}
	if req.ReferralAmount != nil {
		fields["referral_amount"] = *req.ReferralAmount
	}
	if req.Tags != nil {
		fields["tags"] = stringSlice(req.Tags)
	}
	if req.Industries != nil {
		fields["industries"] = stringSlice(req.Industries)
	}
	if req.Markets != nil {
		fields["markets"] = stringSlice(req.Markets)
	}
	return fields, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID snowflake.ID, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	actor := actorID.String()
	target := targetID.String()
	if err := s.audit.AuditLog(ctx, auditdomain.ActorTypeUser, &actor, action, auditdomain.TargetTypeOpportunity, &target, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

// IsValidationError reports whether err is a caller input error.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrNameTooLong),
		errors.Is(err, domain.ErrInvalidType),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidDates),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidPaging):
		return true
	}
	return false
}

func makeSlug(name string, id snowflake.ID) string {
	base := slug.Make(name)
	if len(base) > 200 {
		base = strings.TrimRight(base[:200], "-")
	}
	suffix := strings.ToLower(id.Base36())
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func stringSlice(values []string) datatypes.JSONSlice[string] {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if v := strings.TrimSpace(value); v != "" {
			out = append(out, v)
		}
	}
	return datatypes.JSONSlice[string](out)
}

func negative(value *float64) bool {
	return value != nil && *value < 0
}

func fieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if name == "updated_at" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
