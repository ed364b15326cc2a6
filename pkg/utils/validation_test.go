package utils

import (
	"testing"

	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type respondRequest struct {
	Decision string `json:"decision" validate:"required,oneof=connected rejected"`
	Note     string `json:"note,omitempty" validate:"max=5"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(respondRequest{Decision: "connected"}))

	err := ValidateStruct(respondRequest{Decision: "maybe", Note: "far too long"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	appErr := pkgerrors.GetAppError(err)
	fields := appErr.Details["fields"].(map[string]interface{})
	assert.Equal(t, "decision must be one of: connected rejected", fields["decision"])
	assert.Equal(t, "note must be at most 5", fields["note"])

	err = ValidateStruct(respondRequest{})
	assert.ErrorContains(t, err, "decision is required")
}
