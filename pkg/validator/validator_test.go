package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name   string   `json:"name" validate:"required,min=1,max=255"`
	Price  float64  `json:"price" validate:"gte=0"`
	Images []string `json:"images" validate:"omitempty,dive,url"`
}

func TestValidate_Passes(t *testing.T) {
	assert.NoError(t, Validate(sampleRequest{
		Name:   "Knit Top",
		Price:  199.00,
		Images: []string{"https://img.example/1.jpg"},
	}))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(sampleRequest{Price: -1})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))

	fields := valErr.Fields()
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "price")
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "must be greater than or equal to 0", fields["price"])
}

func TestValidate_RejectsBadImageURL(t *testing.T) {
	err := Validate(sampleRequest{Name: "Knit Top", Images: []string{"not a url"}})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Contains(t, valErr.Error(), "must be a valid URL")
}
