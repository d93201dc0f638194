package authapi

import (
	"time"

	"taskman/cmd/identity"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      *int   `json:"age"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       *int      `json:"age,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type authResponse struct {
	User  accountResponse `json:"user"`
	Token string          `json:"token"`
}

type meResponse struct {
	User accountResponse `json:"user"`
}

func toAccountResponse(a identity.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Age:       a.Age,
		CreatedAt: a.CreatedAt,
	}
}
