package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/srpkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.LoginSession) error
	Exists(ctx context.Context, tokenID string, now time.Time) (bool, error)
	DeleteByAccount(ctx context.Context, accountID string) (int64, error)
}
