package entity

import (
	"net/http"

	"agora/lib/validate"
)

// User is an operator account for the admin API surface (bearer token auth)
// and, optionally, a Telegram alert recipient.
type User struct {
	Username        string `json:"username" bson:"username" validate:"required"`
	Name            string `json:"name" bson:"name" validate:"omitempty"`
	Email           string `json:"email" bson:"email" validate:"omitempty,email"`
	Token           string `json:"token" bson:"token" validate:"required,min=1"`
	TelegramId      int64  `json:"telegram_id" bson:"telegram_id" validate:"omitempty"`
	TelegramEnabled bool   `json:"telegram_enabled" bson:"telegram_enabled" validate:"omitempty"`
}

func (u *User) Bind(_ *http.Request) error {
	return validate.Struct(u)
}
