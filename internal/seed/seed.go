package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/dfund/marketplace/internal/auth/domain"
	"github.com/dfund/marketplace/internal/auth/password"
	opportunitydomain "github.com/dfund/marketplace/internal/opportunity/domain"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const demoPassword = "dfund-demo-2026"

type demoUser struct {
	email     string
	firstName string
	lastName  string
	role      authdomain.Role
}

var demoUsers = []demoUser{
	{email: "owner@dfund.local", firstName: "Camille", lastName: "Bernard", role: authdomain.RoleInvestor},
	{email: "founder@dfund.local", firstName: "Nora", lastName: "Lefebvre", role: authdomain.RoleEntrepreneur},
	{email: "talent@dfund.local", firstName: "Yanis", lastName: "Moreau", role: authdomain.RoleTalent},
}

type demoOpportunity struct {
	name      string
	punchline string
	oppType   opportunitydomain.Type
	tags      []string
}

var demoOpportunities = []demoOpportunity{
	{name: "Pre-seed ticket for climate startups", punchline: "Up to 150k for early climate tech teams", oppType: opportunitydomain.TypeFundingOpportunity, tags: []string{"climate", "pre-seed"}},
	{name: "Fractional CFO for a fintech", punchline: "Two days a week, equity available", oppType: opportunitydomain.TypeJobOpportunity, tags: []string{"fintech", "finance"}},
	{name: "Mentoring circle for first-time founders", punchline: "Monthly sessions with operators", oppType: opportunitydomain.TypeMentorshipOffer, tags: []string{"mentoring"}},
}

// EnsureDemoData seeds demo accounts and opportunities owned by the first
// demo user. Existing rows are left untouched.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ownerID snowflake.ID
		for i, demo := range demoUsers {
			user, err := ensureUserTx(ctx, tx, node, demo)
			if err != nil {
				return err
			}
			if i == 0 {
				ownerID = user.ID
			}
		}

		for _, demo := range demoOpportunities {
			if err := ensureOpportunityTx(ctx, tx, node, ownerID, demo); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureUserTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, demo demoUser) (authdomain.User, error) {
	var user authdomain.User
	err := tx.WithContext(ctx).Where("email = ?", strings.ToLower(demo.email)).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return authdomain.User{}, err
	}

	hashed, err := password.Hash(demoPassword)
	if err != nil {
		return authdomain.User{}, err
	}
	now := time.Now().UTC()
	user = authdomain.User{
		ID:           node.Generate(),
		Email:        strings.ToLower(demo.email),
		PasswordHash: hashed,
		FirstName:    demo.firstName,
		LastName:     demo.lastName,
		Role:         demo.role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return authdomain.User{}, err
	}
	return user, nil
}

func ensureOpportunityTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, ownerID snowflake.ID, demo demoOpportunity) error {
	slugValue := slug.Make(demo.name)

	var existing opportunitydomain.Opportunity
	err := tx.WithContext(ctx).Where("slug = ?", slugValue).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	punchline := demo.punchline
	opportunity := opportunitydomain.Opportunity{
		ID:         node.Generate(),
		OwnerID:    ownerID,
		Name:       demo.name,
		Slug:       slugValue,
		Punchline:  &punchline,
		Type:       demo.oppType,
		Status:     opportunitydomain.StatusActive,
		Remote:     true,
		Tags:       datatypes.JSONSlice[string](demo.tags),
		Industries: datatypes.JSONSlice[string]{},
		Markets:    datatypes.JSONSlice[string]{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return tx.WithContext(ctx).Create(&opportunity).Error
}
