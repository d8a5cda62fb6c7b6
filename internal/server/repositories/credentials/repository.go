package credentials

import (
	"context"

	"github.com/dmitrijs2005/srpkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Credential) error
	GetByUsername(ctx context.Context, username string) (*models.Credential, error)
	DeleteByAccount(ctx context.Context, accountID string) error
}
