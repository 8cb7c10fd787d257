package command

import (
	"context"
	"log"

	"github.com/eaglebank/accounts/internal/repository"
	"github.com/eaglebank/accounts/shared/cqrs"
	"github.com/eaglebank/accounts/shared/events"
	"github.com/eaglebank/accounts/shared/models"
)

// EventPublisher is satisfied by *events.Publisher and events.NopPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// AccountCommandService writes account state and keeps the read model in sync.
type AccountCommandService struct {
	writeRepo *repository.AccountWriteRepository
	readRepo  *repository.AccountReadRepository
	publisher EventPublisher
}

func NewAccountCommandService(
	writeRepo *repository.AccountWriteRepository,
	readRepo *repository.AccountReadRepository,
	publisher EventPublisher,
) *AccountCommandService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AccountCommandService{
		writeRepo: writeRepo,
		readRepo:  readRepo,
		publisher: publisher,
	}
}

func (s *AccountCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
	account := &models.Account{
		Name:        cmd.Name,
		Email:       cmd.Email,
		Address:     cmd.Address,
		PhoneNumber: cmd.PhoneNumber,
	}
	if err := s.writeRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	s.readRepo.CacheAccount(ctx, account)
	if err := s.publisher.Publish(ctx, events.AccountEventsStream, events.AccountCreated, events.AccountCreatedEvent{
		AccountID: account.ID,
		Name:      account.Name,
		Email:     account.Email,
	}); err != nil {
		log.Printf("Failed to publish account.created event: %v", err)
	}
	return models.NewAccountView(account), nil
}

// UpdateAccount replaces the mutable fields of an existing account. The
// returned view always carries cmd.ID.
func (s *AccountCommandService) UpdateAccount(ctx context.Context, cmd cqrs.UpdateAccountCommand) (*models.AccountView, error) {
	account := &models.Account{
		ID:          cmd.ID,
		Name:        cmd.Name,
		Email:       cmd.Email,
		Address:     cmd.Address,
		PhoneNumber: cmd.PhoneNumber,
	}
	if err := s.writeRepo.Update(ctx, account); err != nil {
		return nil, err
	}
	s.readRepo.CacheAccount(ctx, account)
	if err := s.publisher.Publish(ctx, events.AccountEventsStream, events.AccountUpdated, events.AccountUpdatedEvent{
		AccountID: account.ID,
		Name:      account.Name,
		Email:     account.Email,
	}); err != nil {
		log.Printf("Failed to publish account.updated event: %v", err)
	}
	return models.NewAccountView(account), nil
}

// DeleteAccount is idempotent: deleting an absent account succeeds and
// publishes nothing.
func (s *AccountCommandService) DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) error {
	deleted, err := s.writeRepo.Delete(ctx, cmd.ID)
	if err != nil {
		return err
	}
	s.readRepo.InvalidateAccount(ctx, cmd.ID)
	if !deleted {
		return nil
	}
	if err := s.publisher.Publish(ctx, events.AccountEventsStream, events.AccountDeleted, events.AccountDeletedEvent{
		AccountID: cmd.ID,
	}); err != nil {
		log.Printf("Failed to publish account.deleted event: %v", err)
	}
	return nil
}
