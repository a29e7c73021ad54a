package repositories

import (
	"context"
	"errors"

	"github.com/kai426/Dignus-sub001/domain"
	"gorm.io/gorm"
)

// CandidateRepositoryImpl implements domain.CandidateRepository using GORM
type CandidateRepositoryImpl struct {
	db *gorm.DB
}

// NewCandidateRepository creates a new candidate repository
func NewCandidateRepository(db *gorm.DB) domain.CandidateRepository {
	return &CandidateRepositoryImpl{db: db}
}

// Create implements domain.CandidateRepository
func (r *CandidateRepositoryImpl) Create(ctx context.Context, candidate *domain.Candidate) error {
	row := candidateToDB(candidate)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	candidate.ID = row.ID
	candidate.CreatedAt = row.CreatedAt
	candidate.UpdatedAt = row.UpdatedAt
	return nil
}

// FindByCPF implements domain.CandidateRepository
func (r *CandidateRepositoryImpl) FindByCPF(ctx context.Context, cpf string) (*domain.Candidate, error) {
	return r.findOne(ctx, "cpf = ?", cpf)
}

// FindByID implements domain.CandidateRepository
func (r *CandidateRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Candidate, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *CandidateRepositoryImpl) findOne(ctx context.Context, query string, arg interface{}) (*domain.Candidate, error) {
	var row DBCandidate
	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCandidateNotFound
		}
		return nil, err
	}
	return candidateToDomain(&row), nil
}

func candidateToDB(c *domain.Candidate) *DBCandidate {
	return &DBCandidate{
		ID:           c.ID,
		Name:         c.Name,
		Email:        c.Email,
		CPF:          c.CPF,
		Phone:        c.Phone,
		LGPDAccepted: c.LGPDAccepted,
	}
}

func candidateToDomain(row *DBCandidate) *domain.Candidate {
	return &domain.Candidate{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		CPF:          row.CPF,
		Phone:        row.Phone,
		LGPDAccepted: row.LGPDAccepted,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
