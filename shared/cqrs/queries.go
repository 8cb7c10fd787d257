package cqrs

// GetAccountQuery fetches a single account by id.
type GetAccountQuery struct {
	ID int64
}

// GetAccountByEmailQuery fetches a single account by its unique email.
type GetAccountByEmailQuery struct {
	Email string
}

// ListAccountsQuery fetches every account.
type ListAccountsQuery struct{}
