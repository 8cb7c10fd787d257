package models

import "time"

// Account is the persisted row of the accounts table.
// Nullable columns are pointers so an absent value round-trips as NULL.
type Account struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Email       string    `db:"email"`
	Address     *string   `db:"address"`
	PhoneNumber *string   `db:"phone_number"`
	DateJoined  time.Time `db:"date_joined"`
}
