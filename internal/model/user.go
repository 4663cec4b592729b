package model

import "time"

type User struct {
	ID         string    `json:"id"`
	CognitoSub string    `json:"cognito_sub"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Principal is the signed-in identity every record is scoped to.
type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Principal() Principal {
	return Principal{ID: u.ID, Name: u.Name, Email: u.Email}
}
