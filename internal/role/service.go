package role

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// Store persists user role records.
type Store interface {
	GetUserRoles(ctx context.Context, userID string) (*types.UserRoles, error)
	SaveUserRoles(ctx context.Context, roles *types.UserRoles) error
}

// Service reads and changes the roles granted to users.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a role service.
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.Named("role_service"),
		now:    time.Now,
	}
}

// WithClock replaces the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetRoles returns the roles of a user. Users without a record hold only the user role.
func (s *Service) GetRoles(ctx context.Context, userID string) (*types.UserRoles, error) {
	roles, err := s.store.GetUserRoles(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrUserRolesNotFound) {
			return &types.UserRoles{
				UserID: userID,
				Roles:  []enum.Role{enum.RoleUser},
			}, nil
		}
		return nil, fmt.Errorf("failed to get roles: %w", err)
	}
	return roles, nil
}

// GetLevel returns the moderator level of a user.
func (s *Service) GetLevel(ctx context.Context, userID string) (int, error) {
	roles, err := s.GetRoles(ctx, userID)
	if err != nil {
		return enum.LevelUser, err
	}
	return roles.Level(), nil
}

// AssignRoles replaces the roles of a user. Only admins may assign roles.
func (s *Service) AssignRoles(
	ctx context.Context, targetUserID string, roles []enum.Role, grantedBy string,
) (*types.UserRoles, error) {
	level, err := s.GetLevel(ctx, grantedBy)
	if err != nil {
		return nil, err
	}
	if err := Require(level, enum.ActionAssignRole); err != nil {
		return nil, err
	}

	normalized := []enum.Role{enum.RoleUser}
	for _, r := range roles {
		if !r.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, r)
		}
		if !slices.Contains(normalized, r) {
			normalized = append(normalized, r)
		}
	}

	now := s.now()
	record, err := s.GetRoles(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	if record.GrantedAt.IsZero() {
		record.GrantedAt = now
	}
	record.Roles = normalized
	record.GrantedBy = grantedBy
	record.UpdatedAt = now

	if err := s.store.SaveUserRoles(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save roles: %w", err)
	}

	s.logger.Info("Assigned roles",
		zap.String("targetUserID", targetUserID),
		zap.String("grantedBy", grantedBy),
		zap.Any("roles", normalized))

	return record, nil
}

// SuspendModerator strips every moderator role from a user and records why.
func (s *Service) SuspendModerator(ctx context.Context, moderatorID, reason, caseID string) error {
	record, err := s.GetRoles(ctx, moderatorID)
	if err != nil {
		return err
	}

	now := s.now()
	if record.GrantedAt.IsZero() {
		record.GrantedAt = now
	}
	record.Roles = []enum.Role{enum.RoleUser}
	record.GrantedBy = types.OpenedByAuto
	record.UpdatedAt = now
	record.SuspendedAt = &now
	record.SuspensionReason = reason
	record.SuspensionCaseID = caseID

	if err := s.store.SaveUserRoles(ctx, record); err != nil {
		return fmt.Errorf("failed to suspend moderator: %w", err)
	}

	s.logger.Warn("Suspended moderator",
		zap.String("moderatorID", moderatorID),
		zap.String("reason", reason),
		zap.String("caseID", caseID))

	return nil
}
