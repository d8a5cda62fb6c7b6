package accounts

import (
	"context"

	"github.com/dmitrijs2005/srpkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, email, displayName string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	UpdateProfile(ctx context.Context, id string, displayName, image *string) (*models.Account, error)
	Anonymize(ctx context.Context, id string) error
}
