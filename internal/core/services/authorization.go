package services

import (
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
)

// Authorize permits the principal when its role is one of allowed.
func Authorize(principal domain.Principal, allowed ...domain.Role) error {
	if principal == nil {
		return domain.ErrAuthenticationRequired
	}
	for _, role := range allowed {
		if principal.Role() == role {
			return nil
		}
	}
	return &domain.AccessDeniedError{
		Required: append([]domain.Role(nil), allowed...),
		Actual:   principal.Role(),
	}
}
