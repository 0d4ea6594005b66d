package entity

import "time"

// Account represents a row in the `accounts` table.
// PasswordHash is the derived credential; it never leaves the service layer.
type Account struct {
	ID            string    `db:"id"`
	FirstName     string    `db:"first_name"`
	LastName      string    `db:"last_name"`
	Email         string    `db:"email"` // lowercase, unique
	PasswordHash  string    `db:"password_hash" json:"-"`
	PasswordAlgo  string    `db:"password_algo" json:"-"`
	TermsAccepted bool      `db:"terms_accepted"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// PublicView is the projection returned to clients.
type PublicView struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (a *Account) PublicView() *PublicView {
	return &PublicView{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName, Email: a.Email}
}
