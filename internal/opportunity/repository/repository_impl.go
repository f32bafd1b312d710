package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/dfund/marketplace/internal/opportunity/domain"
	"github.com/dfund/marketplace/pkg/db/option"
	"github.com/dfund/marketplace/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Repository[domain.Opportunity]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{store: repository.ProvideStore[domain.Opportunity](db)}
}

type opportunityRow struct {
	domain.Opportunity
	OwnerFirstName string
	OwnerLastName  string
}

func (row opportunityRow) toDomain() *domain.OpportunityWithOwner {
	return &domain.OpportunityWithOwner{
		Opportunity: row.Opportunity,
		Owner: domain.OwnerSummary{
			ID:        row.OwnerID,
			FirstName: row.OwnerFirstName,
			LastName:  row.OwnerLastName,
		},
	}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, opportunity *domain.Opportunity) error {
	return r.store.WithTrx(db).Create(ctx, opportunity)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Opportunity, error) {
	return r.store.WithTrx(db).FindByID(ctx, id)
}

func (r *repo) FindWithOwner(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.OpportunityWithOwner, error) {
	var rows []opportunityRow
	err := withOwner(db.WithContext(ctx)).
		Where("o.id = ?", int64(id)).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

func (r *repo) FindOwnerID(ctx context.Context, db *gorm.DB, id snowflake.ID) (snowflake.ID, bool, error) {
	var ownerIDs []int64
	err := db.WithContext(ctx).Raw(
		`SELECT owner_id FROM opportunities WHERE id = ?`,
		int64(id),
	).Scan(&ownerIDs).Error
	if err != nil {
		return 0, false, err
	}
	if len(ownerIDs) == 0 {
		return 0, false, nil
	}
	return snowflake.ID(ownerIDs[0]), true, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	_, err := r.store.WithTrx(db).Update(ctx, id, fields)
	return err
}

func (r *repo) CountApplications(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Table("applications").Where("opportunity_id = ?", int64(id)).Count(&count).Error
	return count, err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	_, err := r.store.WithTrx(db).Delete(ctx, id)
	return err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.OpportunityWithOwner, int64, error) {
	stmt := db.WithContext(ctx).Table("opportunities AS o")
	if filter.Status != "" {
		stmt = stmt.Where("o.status = ?", string(filter.Status))
	}
	if filter.Type != "" {
		stmt = stmt.Where("o.type = ?", string(filter.Type))
	}
	if filter.OwnerID != 0 {
		stmt = stmt.Where("o.owner_id = ?", int64(filter.OwnerID))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		stmt = stmt.Where(
			"(LOWER(o.name) LIKE ? ESCAPE '!' OR LOWER(COALESCE(o.punchline, '')) LIKE ? ESCAPE '!' OR LOWER(COALESCE(o.description, '')) LIKE ? ESCAPE '!')",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := stmt.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []opportunityRow
	err := option.Apply(withOwner(stmt),
		option.NewestFirst("o"),
		option.ApplyOffset(filter.Skip, filter.Take),
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	items := make([]*domain.OpportunityWithOwner, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, total, nil
}

func withOwner(stmt *gorm.DB) *gorm.DB {
	return stmt.
		Table("opportunities AS o").
		Select("o.*, u.first_name AS owner_first_name, u.last_name AS owner_last_name").
		Joins("LEFT JOIN users u ON u.id = o.owner_id")
}

func escapeLike(value string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(value)
}
