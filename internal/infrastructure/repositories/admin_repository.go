package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/kai426/Dignus-sub001/domain"
	"gorm.io/gorm"
)

// AdminRepositoryImpl implements domain.AdminRepository using GORM
type AdminRepositoryImpl struct {
	db *gorm.DB
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *gorm.DB) domain.AdminRepository {
	return &AdminRepositoryImpl{db: db}
}

// Create implements domain.AdminRepository
func (r *AdminRepositoryImpl) Create(ctx context.Context, admin *domain.Admin) error {
	row := r.domainToDB(admin)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	admin.ID = row.ID
	return nil
}

// FindByEmail implements domain.AdminRepository
func (r *AdminRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	var row DBAdmin
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAdminNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&row), nil
}

// FindByID implements domain.AdminRepository
func (r *AdminRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Admin, error) {
	var row DBAdmin
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAdminNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&row), nil
}

// domainToDB converts domain admin to database admin
func (r *AdminRepositoryImpl) domainToDB(admin *domain.Admin) *DBAdmin {
	return &DBAdmin{
		ID:           admin.ID,
		Name:         admin.Name,
		Email:        strings.ToLower(strings.TrimSpace(admin.Email)),
		PasswordHash: admin.PasswordHash,
		Role:         admin.Role,
		IsActive:     admin.IsActive,
	}
}

// dbToDomain converts database admin to domain admin
func (r *AdminRepositoryImpl) dbToDomain(row *DBAdmin) *domain.Admin {
	return &domain.Admin{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         row.Role,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
