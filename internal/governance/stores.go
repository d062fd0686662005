package governance

import (
	"context"
	"time"

	"github.com/robalyx/warden/internal/appeal"
	"github.com/robalyx/warden/internal/cases"
	"github.com/robalyx/warden/internal/confidence"
	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/enforcement"
	"github.com/robalyx/warden/internal/rogue"
	"github.com/robalyx/warden/internal/role"
	"github.com/robalyx/warden/internal/signal"
)

// AuditStore persists the moderation audit log.
type AuditStore interface {
	confidence.AuditReader
	rogue.AuditReader
	AppendAudit(ctx context.Context, entry *types.ModerationAuditLog) error
	GetAudit(ctx context.Context, id string) (*types.ModerationAuditLog, error)
	MarkAuditReversed(ctx context.Context, id, reversedBy string, reversedAt time.Time) (*types.ModerationAuditLog, error)
}

// Stores groups the persistence the engine runs on.
type Stores struct {
	Roles        role.Store
	Confidence   confidence.Store
	Cases        cases.Store
	Audit        AuditStore
	Appeals      appeal.Store
	Approvals    appeal.ApprovalStore
	Restrictions enforcement.RestrictionStore
	Detections   rogue.DetectionStore
	Accounts     enforcement.AccountStatusEngine
	Profiles     signal.TrustProfileReader
	Reports      signal.ReportStore
}

// StoresFromRepository returns the Postgres-backed stores.
func StoresFromRepository(repo *database.Repository) Stores {
	return Stores{
		Roles:        repo.Role(),
		Confidence:   repo.Confidence(),
		Cases:        repo.Case(),
		Audit:        repo.Audit(),
		Appeals:      repo.Appeal(),
		Approvals:    repo.Approval(),
		Restrictions: repo.Restriction(),
		Detections:   repo.Detection(),
		Accounts:     repo.AccountState(),
		Profiles:     repo.Signal(),
		Reports:      repo.Signal(),
	}
}

// AllStores is a single store implementing every persistence concern.
type AllStores interface {
	role.Store
	confidence.Store
	cases.Store
	AuditStore
	appeal.Store
	appeal.ApprovalStore
	enforcement.RestrictionStore
	rogue.DetectionStore
	enforcement.AccountStatusEngine
	signal.TrustProfileReader
	signal.ReportStore
}

// StoresFrom uses one store for every concern.
func StoresFrom(store AllStores) Stores {
	return Stores{
		Roles:        store,
		Confidence:   store,
		Cases:        store,
		Audit:        store,
		Appeals:      store,
		Approvals:    store,
		Restrictions: store,
		Detections:   store,
		Accounts:     store,
		Profiles:     store,
		Reports:      store,
	}
}
