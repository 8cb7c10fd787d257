package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/eaglebank/accounts/shared/models"
	sharedredis "github.com/eaglebank/accounts/shared/redis"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
)

const (
	accountViewKeyPrefix = "account:view:"

	// maxFillTTL bounds entries written by read-through fills, which can
	// race a delete and land after its invalidation.
	maxFillTTL = 30 * time.Second
)

// accountCacheEntry is the Redis representation of an account row.
type accountCacheEntry struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Address     *string   `json:"address"`
	PhoneNumber *string   `json:"phoneNumber"`
	DateJoined  time.Time `json:"dateJoined"`
}

// AccountReadRepository handles all read operations for accounts.
// When a Redis client is supplied, single-account reads go through the view
// cache first and warm it on every cold read.
type AccountReadRepository struct {
	db      *sqlx.DB
	cache   *sharedredis.ViewCache[accountCacheEntry]
	fillTTL time.Duration
}

// NewAccountReadRepository builds a read repository. redisClient may be nil,
// which disables caching.
func NewAccountReadRepository(db *sqlx.DB, redisClient *goredis.Client, cacheTTL time.Duration) *AccountReadRepository {
	r := &AccountReadRepository{db: db, fillTTL: maxFillTTL}
	if cacheTTL > 0 && cacheTTL < maxFillTTL {
		r.fillTTL = cacheTTL
	}
	if redisClient != nil {
		r.cache = sharedredis.NewViewCache[accountCacheEntry](redisClient, cacheTTL)
	}
	return r
}

func accountCacheKey(id int64) string {
	return accountViewKeyPrefix + strconv.FormatInt(id, 10)
}

func newAccountCacheEntry(account *models.Account) *accountCacheEntry {
	return &accountCacheEntry{
		ID:          account.ID,
		Name:        account.Name,
		Email:       account.Email,
		Address:     account.Address,
		PhoneNumber: account.PhoneNumber,
		DateJoined:  account.DateJoined,
	}
}

func (e *accountCacheEntry) toAccount() *models.Account {
	return &models.Account{
		ID:          e.ID,
		Name:        e.Name,
		Email:       e.Email,
		Address:     e.Address,
		PhoneNumber: e.PhoneNumber,
		DateJoined:  e.DateJoined,
	}
}

// GetByID returns the account or ErrNotFound.
func (r *AccountReadRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	if r.cache != nil {
		if entry, ok := r.cache.Get(ctx, accountCacheKey(id)); ok {
			return entry.toAccount(), nil
		}
	}

	account, err := r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Add(ctx, accountCacheKey(id), newAccountCacheEntry(account), r.fillTTL)
	}
	return account, nil
}

// GetByEmail returns the account owning email or ErrNotFound.
func (r *AccountReadRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
}

// List returns every account in insertion order. The result is never nil.
func (r *AccountReadRepository) List(ctx context.Context) ([]models.Account, error) {
	accounts := []models.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountReadRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, r.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// CacheAccount stores or refreshes the cached copy of an account.
// Called by the command service after every create and update.
func (r *AccountReadRepository) CacheAccount(ctx context.Context, account *models.Account) {
	if r.cache == nil {
		return
	}
	r.cache.Set(ctx, accountCacheKey(account.ID), newAccountCacheEntry(account))
}

// InvalidateAccount drops the cached copy of a deleted account.
func (r *AccountReadRepository) InvalidateAccount(ctx context.Context, id int64) {
	if r.cache == nil {
		return
	}
	r.cache.Delete(ctx, accountCacheKey(id))
}
