package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

func (r *GoogleLoginRequest) Validate(validate *validator.Validate) error {
	r.IDToken = core.CleanString(r.IDToken)
	return validate.Struct(r)
}

type LoginResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

type JoinRequest struct {
	Code string `json:"code" validate:"required"`
}

func (r *JoinRequest) Validate(validate *validator.Validate) error {
	r.Code = core.CleanString(r.Code)
	return validate.Struct(r)
}
