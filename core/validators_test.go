package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	testItem struct {
		Label string `json:"label" validate:"required,notblank"`
	}

	testForm struct {
		Name  string     `json:"name" validate:"notblank,max=5"`
		Email string     `json:"email" validate:"omitempty,email"`
		Items []testItem `json:"items" validate:"min=1,dive"`
	}
)

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name string
		form testForm
		want map[string]string
	}{
		{name: "valid", form: testForm{Name: "ok", Items: []testItem{{Label: "a"}}}},
		{
			name: "blank and missing",
			form: testForm{Name: "   ", Items: []testItem{{Label: "a"}, {Label: ""}}},
			want: map[string]string{
				"name":           "this field cannot be blank",
				"items[1].label": "this field is required",
			},
		},
		{
			name: "default translations",
			form: testForm{Name: "too long", Email: "nope"},
			want: map[string]string{
				"name":  "name must be a maximum of 5 characters in length",
				"email": "email must be a valid email address",
				"items": "items must contain at least 1 item",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.form)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			vErr, ok := AsValidationError(err)
			require.True(t, ok, "ValidateStruct() error = %v, want *ValidationError", err)
			assert.Equal(t, tt.want, vErr.FieldMap())
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{{Field: "title", Error: "too long"}, {Field: "answers", Error: "none correct"}}}
	assert.Equal(t, "title: too long; answers: none correct", err.Error())

	err.SortFields()
	assert.Equal(t, "answers", err.Fields[0].Field)

	assert.Equal(t, "validation failed", (&ValidationError{Err: errValidation}).Error())
}
