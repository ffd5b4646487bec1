// Package orgs covers organization membership: listing members, pulling in
// unaffiliated users and managing their roles.
package orgs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/uniflow/uniflow/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("organization not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidRole    = errors.New("invalid role")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Get returns the caller's organization with its member count. Requests for
// any other organization come back as not found.
func (s *Service) Get(ctx context.Context, id uuid.UUID, caller *models.User) (*models.Organization, int64, error) {
	if id != caller.OrganizationID {
		return nil, 0, ErrNotFound
	}

	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("organization_id = ?", id).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	return &org, count, nil
}

// Members lists the caller's organization, optionally filtered by role.
func (s *Service) Members(ctx context.Context, caller *models.User, roleFilter string) ([]models.User, error) {
	query := s.db.WithContext(ctx).
		Where("organization_id = ?", caller.OrganizationID)

	if roleFilter != "" && roleFilter != "all" {
		role, err := models.ParseRole(roleFilter)
		if err != nil {
			return nil, ErrInvalidRole
		}
		query = query.Where("role = ?", role)
	}

	var members []models.User
	err := query.Order("created_at ASC").Find(&members).Error
	return members, err
}

// AvailableUsers lists users that belong to no organization yet.
func (s *Service) AvailableUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", uuid.Nil).
		Find(&users).Error
	return users, err
}

// AddMember pulls an unaffiliated user into the caller's organization.
func (s *Service) AddMember(ctx context.Context, caller *models.User, userID uuid.UUID, role models.Role) (*models.User, error) {
	var target models.User
	if err := s.db.WithContext(ctx).First(&target, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	target.OrganizationID = caller.OrganizationID
	target.Role = role
	if err := s.db.WithContext(ctx).Model(&target).Updates(map[string]interface{}{
		"organization_id": caller.OrganizationID,
		"role":            role,
	}).Error; err != nil {
		return nil, err
	}

	return &target, nil
}

// UpdateMemberRole changes the role of a member of the caller's organization.
func (s *Service) UpdateMemberRole(ctx context.Context, caller *models.User, memberID uuid.UUID, role models.Role) (*models.User, error) {
	target, err := s.memberOf(ctx, caller, memberID)
	if err != nil {
		return nil, err
	}

	target.Role = role
	if err := s.db.WithContext(ctx).Model(target).Update("role", role).Error; err != nil {
		return nil, err
	}

	return target, nil
}

// RemoveMember detaches a member from the caller's organization. The user
// account stays, demoted to viewer with no organization.
func (s *Service) RemoveMember(ctx context.Context, caller *models.User, memberID uuid.UUID) error {
	target, err := s.memberOf(ctx, caller, memberID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(target).Updates(map[string]interface{}{
		"organization_id": uuid.Nil,
		"role":            models.RoleViewer,
	}).Error
}

func (s *Service) memberOf(ctx context.Context, caller *models.User, memberID uuid.UUID) (*models.User, error) {
	var target models.User
	err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", memberID, caller.OrganizationID).
		First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &target, nil
}
