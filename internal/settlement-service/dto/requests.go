package dto

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// RunRequest é o corpo opcional de POST /v1/settlement/run.
// Sem rodadas = todas as rodadas com bilhetes pendentes.
type RunRequest struct {
	Rounds []string `json:"rounds" validate:"max=100,dive,required,max=64"`
	Limit  int      `json:"limit,omitempty" validate:"gte=0"`
}

func (r *RunRequest) Validate() error {
	return validate.Struct(r)
}
