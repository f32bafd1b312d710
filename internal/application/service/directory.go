package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/dfund/marketplace/internal/application/domain"
	oppdomain "github.com/dfund/marketplace/internal/opportunity/domain"
)

type opportunityDirectory struct {
	opportunities oppdomain.Service
}

// NewOpportunityDirectory answers ownership lookups from the opportunity service.
func NewOpportunityDirectory(svc oppdomain.Service) domain.OpportunityDirectory {
	return &opportunityDirectory{opportunities: svc}
}

func (d *opportunityDirectory) GetOwnerID(ctx context.Context, opportunityID snowflake.ID) (snowflake.ID, error) {
	ownerID, err := d.opportunities.GetOwnerID(ctx, opportunityID)
	if err != nil {
		if errors.Is(err, oppdomain.ErrNotFound) {
			return 0, domain.ErrOpportunityNotFound
		}
		return 0, err
	}
	return ownerID, nil
}
