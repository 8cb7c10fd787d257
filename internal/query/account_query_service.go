package query

import (
	"context"

	"github.com/eaglebank/accounts/internal/repository"
	"github.com/eaglebank/accounts/shared/cqrs"
	"github.com/eaglebank/accounts/shared/models"
)

type AccountQueryService struct {
	readRepo *repository.AccountReadRepository
}

func NewAccountQueryService(readRepo *repository.AccountReadRepository) *AccountQueryService {
	return &AccountQueryService{readRepo: readRepo}
}

// GetAccount returns repository.ErrNotFound when the id was never issued or
// the account has been deleted.
func (s *AccountQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.AccountView, error) {
	account, err := s.readRepo.GetByID(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return models.NewAccountView(account), nil
}

func (s *AccountQueryService) GetAccountByEmail(ctx context.Context, q cqrs.GetAccountByEmailQuery) (*models.AccountView, error) {
	account, err := s.readRepo.GetByEmail(ctx, q.Email)
	if err != nil {
		return nil, err
	}
	return models.NewAccountView(account), nil
}

func (s *AccountQueryService) ListAccounts(ctx context.Context, _ cqrs.ListAccountsQuery) ([]models.AccountView, error) {
	accounts, err := s.readRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return models.NewAccountViews(accounts), nil
}
