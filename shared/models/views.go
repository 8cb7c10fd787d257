package models

import "time"

// AccountView is the wire projection of an account.
// Address and PhoneNumber serialise as null when absent; DateJoined is null
// only for a record that was never persisted.
type AccountView struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Address     *string    `json:"address"`
	PhoneNumber *string    `json:"phone_number"`
	DateJoined  *time.Time `json:"date_joined"`
}

// NewAccountView converts the persisted row to its wire form.
func NewAccountView(a *Account) *AccountView {
	view := &AccountView{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Address:     a.Address,
		PhoneNumber: a.PhoneNumber,
	}
	if !a.DateJoined.IsZero() {
		joined := a.DateJoined.UTC()
		view.DateJoined = &joined
	}
	return view
}

// NewAccountViews converts a slice of rows, never returning nil.
func NewAccountViews(accounts []Account) []AccountView {
	views := make([]AccountView, 0, len(accounts))
	for i := range accounts {
		views = append(views, *NewAccountView(&accounts[i]))
	}
	return views
}
