// Package types provides type definitions for structured data used throughout the reelsmith system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "github.com/go-playground/validator/v10"

// CreateRunRequest is the body of a run creation request.
type CreateRunRequest struct {
	Title string `json:"title,omitempty"`
	Brief string `json:"brief" validate:"required,min=1"`
}

// InstructionRequest queues a free-text instruction for a stage.
type InstructionRequest struct {
	Stage string `json:"stage" validate:"required"`
	Text  string `json:"text" validate:"required,min=1"`
}

// RedoStageRequest rewinds a run to a stage.
type RedoStageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

// RedoItemRequest invalidates one produced item. Key identifies assets
// ("character:Lily:front"); Shot identifies frames and clips.
type RedoItemRequest struct {
	Type string `json:"type" validate:"required"`
	Key  string `json:"key,omitempty"`
	Shot int    `json:"shot,omitempty"`
}

// Validate validates the CreateRunRequest using the validator.
func (r *CreateRunRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the InstructionRequest using the validator.
func (r *InstructionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the RedoStageRequest using the validator.
func (r *RedoStageRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the RedoItemRequest using the validator.
func (r *RedoItemRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
