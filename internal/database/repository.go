package database

import (
	"github.com/robalyx/warden/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	role        *models.RoleModel
	confidence  *models.ConfidenceModel
	cases       *models.CaseModel
	audit       *models.AuditModel
	appeal      *models.AppealModel
	approval    *models.ApprovalModel
	restriction *models.RestrictionModel
	detection   *models.DetectionModel
	account     *models.AccountStateModel
	signal      *models.SignalModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		role:        models.NewRole(db, logger),
		confidence:  models.NewConfidence(db, logger),
		cases:       models.NewCase(db, logger),
		audit:       models.NewAudit(db, logger),
		appeal:      models.NewAppeal(db, logger),
		approval:    models.NewApproval(db, logger),
		restriction: models.NewRestriction(db, logger),
		detection:   models.NewDetection(db, logger),
		account:     models.NewAccountState(db, logger),
		signal:      models.NewSignal(db, logger),
	}
}

// Role returns the user role model repository.
func (r *Repository) Role() *models.RoleModel {
	return r.role
}

// Confidence returns the enforcement confidence model repository.
func (r *Repository) Confidence() *models.ConfidenceModel {
	return r.confidence
}

// Case returns the moderation case model repository.
func (r *Repository) Case() *models.CaseModel {
	return r.cases
}

// Audit returns the moderation audit log model repository.
func (r *Repository) Audit() *models.AuditModel {
	return r.audit
}

// Appeal returns the enforcement appeal model repository.
func (r *Repository) Appeal() *models.AppealModel {
	return r.appeal
}

// Approval returns the suspension approval model repository.
func (r *Repository) Approval() *models.ApprovalModel {
	return r.approval
}

// Restriction returns the visibility and posting restriction model repository.
func (r *Repository) Restriction() *models.RestrictionModel {
	return r.restriction
}

// Detection returns the rogue moderator detection model repository.
func (r *Repository) Detection() *models.DetectionModel {
	return r.detection
}

// AccountState returns the account enforcement state model repository.
func (r *Repository) AccountState() *models.AccountStateModel {
	return r.account
}

// Signal returns the trust profile and content report model repository.
func (r *Repository) Signal() *models.SignalModel {
	return r.signal
}
