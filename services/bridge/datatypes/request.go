// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Request and response types for the bridge HTTP endpoints.
package datatypes

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxConceptBytes bounds a single concept label. Checked as byte length,
// not rune count, so oversized payloads are rejected before prompt
// assembly.
const MaxConceptBytes = 200

// bridgeValidate is the validator instance for request datatypes.
var bridgeValidate *validator.Validate

func init() {
	bridgeValidate = validator.New()
	_ = bridgeValidate.RegisterValidation("concept", validateConcept)
}

// validateConcept accepts non-blank strings up to MaxConceptBytes.
func validateConcept(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if strings.TrimSpace(v) == "" {
		return false
	}
	return len(v) <= MaxConceptBytes
}

// ConnectRequest is the body of POST /v1/connect.
//
// When SessionID is set the profile fields are also upserted to the
// profile store before the query runs, mirroring the explicit profile
// update path. They always act as per-request overrides either way.
type ConnectRequest struct {
	ConceptA       string `json:"concept_a" binding:"required" validate:"concept"`
	ConceptB       string `json:"concept_b" binding:"required" validate:"concept"`
	KnowledgeLevel string `json:"knowledge_level,omitempty"`
	SessionID      string `json:"session_id,omitempty"`

	EducationLevel    *string `json:"education_level,omitempty"`
	EducationSystem   *string `json:"education_system,omitempty"`
	ConceptAKnowledge *int    `json:"concept_a_knowledge,omitempty" validate:"omitempty,min=0,max=5"`
	ConceptBKnowledge *int    `json:"concept_b_knowledge,omitempty" validate:"omitempty,min=0,max=5"`
}

// Validate runs the request through the shared validator.
func (r *ConnectRequest) Validate() error {
	if err := bridgeValidate.Var(r.ConceptA, "concept"); err != nil {
		return err
	}
	if err := bridgeValidate.Var(r.ConceptB, "concept"); err != nil {
		return err
	}
	return bridgeValidate.Struct(r)
}

// Overrides converts the request's profile fields into ProfileOverrides.
// The knowledge level is always supplied (it defaults at normalization),
// the remaining fields only when present in the request body.
func (r *ConnectRequest) Overrides() *ProfileOverrides {
	level := NormalizeLevel(r.KnowledgeLevel)
	return &ProfileOverrides{
		KnowledgeLevel:    &level,
		EducationLevel:    r.EducationLevel,
		EducationSystem:   r.EducationSystem,
		ConceptAKnowledge: r.ConceptAKnowledge,
		ConceptBKnowledge: r.ConceptBKnowledge,
	}
}

// FeedbackRequest is the body of POST /v1/feedback.
type FeedbackRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Rating    *int   `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment   string `json:"comment,omitempty"`
}

// Validate runs the request through the shared validator. A feedback row
// must carry a rating, a comment, or both.
func (r *FeedbackRequest) Validate() error {
	if r.Rating == nil && strings.TrimSpace(r.Comment) == "" {
		return ErrEmptyFeedback
	}
	return bridgeValidate.Struct(r)
}

// ErrEmptyFeedback rejects feedback rows with neither rating nor comment.
var ErrEmptyFeedback = validationError("feedback requires a rating or a comment")

type validationError string

func (e validationError) Error() string { return string(e) }

// ErrorResponse is the uniform error body for all bridge endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
