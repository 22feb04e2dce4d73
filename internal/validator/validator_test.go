package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rizom-ai/brains-sub000/internal/validator"
)

type testPluginMetadata struct {
	Name    string `validate:"required,lowercase,min=2,max=64"`
	Version string `validate:"required"`
	Tier    string `validate:"required,oneof=core service interface"`
}

type testRoute struct {
	Path   string `validate:"required,startswith=/"`
	Method string `validate:"omitempty,oneof=GET POST PUT DELETE"`
	Tool   string `validate:"required"`
}

func TestValidateStruct_Success(t *testing.T) {
	m := testPluginMetadata{Name: "notes-plugin", Version: "1.0.0", Tier: "service"}
	assert.NoError(t, validator.ValidateStruct(m))
}

func TestValidateStruct_RequiredFields(t *testing.T) {
	m := testPluginMetadata{}
	assert.Error(t, validator.ValidateStruct(m))
}

func TestValidateRequest_Success(t *testing.T) {
	r := testRoute{Path: "/notes", Method: "GET", Tool: "notes_list"}
	errs := validator.ValidateRequest(r)
	assert.Nil(t, errs)
}

func TestValidateRequest_MultipleErrors(t *testing.T) {
	r := testRoute{Path: "notes", Method: "PATCH", Tool: ""}
	errs := validator.ValidateRequest(r)
	assert.NotNil(t, errs)
	assert.Contains(t, errs, "path")
	assert.Contains(t, errs, "method")
	assert.Contains(t, errs, "tool")
}

func TestValidateLowercase_Invalid(t *testing.T) {
	m := testPluginMetadata{Name: "Notes-Plugin", Version: "1.0.0", Tier: "service"}
	errs := validator.ValidateRequest(m)
	assert.NotNil(t, errs)
	assert.Contains(t, errs, "name")
}

func TestValidateOneof_Invalid(t *testing.T) {
	m := testPluginMetadata{Name: "notes-plugin", Version: "1.0.0", Tier: "worker"}
	errs := validator.ValidateRequest(m)
	assert.NotNil(t, errs)
	assert.Contains(t, errs, "tier")
}

func TestValidateMinMax_Strings(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		shouldErr bool
	}{
		{"valid", "notes", false},
		{"too short", "n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testPluginMetadata{Name: tt.value, Version: "1.0.0", Tier: "service"}
			errs := validator.ValidateRequest(m)
			if tt.shouldErr {
				assert.NotNil(t, errs)
				assert.Contains(t, errs, "name")
			} else {
				assert.Nil(t, errs)
			}
		})
	}
}

func TestFormatValidationError_Descriptive(t *testing.T) {
	m := testPluginMetadata{}
	errs := validator.ValidateRequest(m)
	assert.NotNil(t, errs)

	for field, msg := range errs {
		assert.NotEmpty(t, msg, "error message should not be empty for field: %s", field)
		assert.NotContains(t, msg, "Validation failed", "should use a custom error message")
	}
}
