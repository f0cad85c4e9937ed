package middleware

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejectBody struct {
	Reason string   `json:"reason" binding:"required,max=5"`
	IDs    []string `json:"item_ids" binding:"required,min=1"`
}

func TestValidationDetails(t *testing.T) {
	SetupValidator()

	err := binding.Validator.ValidateStruct(&rejectBody{IDs: []string{}})
	require.Error(t, err)

	details := ValidationDetails(err)
	require.Len(t, details, 2)
	assert.Equal(t, "reason", details[0].Field)
	assert.Equal(t, "This field is required", details[0].Message)
	assert.Equal(t, "item_ids", details[1].Field)
	assert.Equal(t, "Must contain at least 1 entries", details[1].Message)

	err = binding.Validator.ValidateStruct(&rejectBody{Reason: "too long", IDs: []string{"a"}})
	details = ValidationDetails(err)
	require.Len(t, details, 1)
	assert.Equal(t, "Must be at most 5 characters", details[0].Message)

	assert.Nil(t, ValidationDetails(errors.New("plain")))
}

type browseQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=active disabled"`
}

func TestValidationDetails_FormFieldNames(t *testing.T) {
	SetupValidator()

	err := binding.Validator.ValidateStruct(&browseQuery{Status: "gone"})
	details := ValidationDetails(err)
	require.Len(t, details, 1)
	assert.Equal(t, "status", details[0].Field)
	assert.Equal(t, "Must be one of: active disabled", details[0].Message)
}
