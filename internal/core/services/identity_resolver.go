package services

import (
	"context"
	"fmt"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
)

type IdentityResolver struct {
	principals ports.PrincipalRepository
}

var _ ports.IdentityResolver = (*IdentityResolver)(nil)

func NewIdentityResolver(principals ports.PrincipalRepository) *IdentityResolver {
	return &IdentityResolver{principals: principals}
}

// Resolve loads the active principal from the table the claimed role selects.
// Ids are only unique per table, so the other table is never consulted.
func (r *IdentityResolver) Resolve(ctx context.Context, claim domain.Claim) (domain.Principal, error) {
	switch claim.Role {
	case domain.RoleManager:
		m, err := r.principals.FindActiveManager(ctx, claim.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("resolve manager %d: %w", claim.SubjectID, err)
		}
		if m == nil {
			return nil, domain.ErrUnknownManager
		}
		return *m, nil

	case domain.RoleBabysitter:
		b, err := r.principals.FindActiveBabysitter(ctx, claim.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("resolve babysitter %d: %w", claim.SubjectID, err)
		}
		if b == nil {
			return nil, domain.ErrUnknownBabysitter
		}
		return *b, nil

	default:
		return nil, domain.ErrUnknownRole
	}
}
