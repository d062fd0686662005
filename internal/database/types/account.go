package types

import (
	"time"

	"github.com/robalyx/warden/internal/database/types/enum"
)

// AccountEnforcementState is the record owned by the account-status engine.
type AccountEnforcementState struct {
	UserID         string              `bun:",pk"`
	AccountStatus  enum.AccountStatus  `bun:",notnull"`
	FeatureLocks   []string            `bun:",type:jsonb,notnull"`
	VisibilityTier enum.VisibilityTier `bun:",notnull"`
	UpdatedAt      time.Time           `bun:",notnull"`
}
