package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uniflow/uniflow/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
)

type Service struct {
	db  *gorm.DB
	jwt *JWTService
}

func NewService(db *gorm.DB, jwt *JWTService) *Service {
	return &Service{db: db, jwt: jwt}
}

type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	OrgName    string // Optional: create or join an organization by NIF
	OrgTaxID   string
	Department string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a user and resolves its organization. The first user of an
// organization becomes its owner; anyone joining an existing organization
// starts as a viewer until an admin promotes them.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", input.Email).First(&existing).Error; err == nil {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	if input.OrgName == "" {
		input.OrgName = input.Name + "'s Team"
	}
	if input.OrgTaxID == "" {
		input.OrgTaxID = generateTaxID()
	}

	var user models.User
	var org models.Organization
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role := models.RoleViewer

		findErr := tx.Where("tax_id = ?", input.OrgTaxID).First(&org).Error
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			org = models.Organization{
				Name:  input.OrgName,
				TaxID: input.OrgTaxID,
			}
			if err := tx.Create(&org).Error; err != nil {
				return err
			}
			role = models.RoleOwner
		} else if findErr != nil {
			return findErr
		}

		user = models.User{
			Email:          input.Email,
			PasswordHash:   hash,
			Name:           input.Name,
			OrganizationID: org.ID,
			Role:           role,
			Department:     input.Department,
			IsActive:       true,
		}

		return tx.Create(&user).Error
	})

	if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user.ID, org.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	user.Organization = &org

	return &AuthResponse{
		Token: token,
		User:  &user,
	}, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("email = ?", input.Email).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.OrganizationID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  &user,
	}, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func generateTaxID() string {
	return fmt.Sprintf("NIF-%s-%s", time.Now().Format("0601021504"), uuid.New().String()[:8])
}
