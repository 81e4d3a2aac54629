package supplier

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/supplier-portal/internal"
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetMine returns the caller's summary and the supplier they registered, with
// its quality history and uploaded documents.
func (s *Service) GetMine(ctx context.Context, userID string) (*MyProfileResponse, error) {
	owner, err := s.repo.GetOwner(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load user", err)
	}
	if owner == nil || owner.SupplierID == nil || *owner.SupplierID == "" {
		return nil, errors.ErrSupplierNotFound
	}

	dm, err := s.repo.GetByID(ctx, *owner.SupplierID, true)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load supplier", err)
	}
	if dm == nil {
		return nil, errors.ErrSupplierNotFound
	}

	return &MyProfileResponse{
		User: OwnerSummary{
			ID:    owner.ID,
			Name:  owner.Name,
			Email: owner.Email,
		},
		Supplier: FromDataModel(dm),
	}, nil
}

func (s *Service) Search(ctx context.Context, query string) ([]*Supplier, error) {
	rows, err := s.repo.Search(ctx, query, SearchLimit)
	if err != nil {
		return nil, errors.NewInternalError("Failed to search suppliers", err)
	}

	result := make([]*Supplier, 0, len(rows))
	for i := range rows {
		result = append(result, FromDataModel(&rows[i]))
	}
	return result, nil
}

// RecordIQF appends a monthly quality entry and moves the supplier's current
// scores to it. A nil approval score leaves the current one unchanged.
func (s *Service) RecordIQF(ctx context.Context, supplierID string, dto RecordIQFDTO) (*IQFEntry, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	history, err := dto.ToDataModel(supplierID)
	if err != nil {
		return nil, errors.NewValidationFieldError("monthRef", err.Error(), errors.ErrCodeInvalidDate)
	}

	err = s.repo.Transaction(ctx, func(tx RepositoryAPI) error {
		existing, err := tx.GetByID(ctx, supplierID, false)
		if err != nil {
			return err
		}
		if existing == nil {
			return errors.ErrSupplierNotFound
		}
		if err := tx.CreateIQFHistory(ctx, history); err != nil {
			return err
		}
		return tx.UpdateScores(ctx, supplierID, history.IQFScore, history.ApprovalScore)
	})
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, errors.NewInternalError("Failed to record IQF", err)
	}

	s.logger.InfoContext(ctx, "iqf recorded",
		"supplier_id", supplierID,
		"month_ref", history.MonthRef.Format("2006-01-02"),
		"iqf_score", history.IQFScore)

	return IQFEntryFromDataModel(history), nil
}
