package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/conorfennell/lectern/internal/errors"
)

type testForm struct {
	Name     string `form:"name" validate:"required,max=10"`
	Colour   string `form:"colour" validate:"required,oneof=red blue"`
	Days     []int  `form:"days" validate:"min=1,dive,gte=0,lte=4"`
	Username string `form:"username" validate:"omitempty,username"`
}

func TestValidate(t *testing.T) {
	v := New()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, v.Validate(testForm{Name: "Algo", Colour: "red", Days: []int{1, 3}, Username: "a.b+c@d"}))
	})

	tests := []struct {
		name    string
		form    testForm
		field   string
		message string
	}{
		{"missing name", testForm{Colour: "red", Days: []int{0}}, "name", "is required"},
		{"long name", testForm{Name: "Algorithms!", Colour: "red", Days: []int{0}}, "name", "must not exceed 10 characters"},
		{"bad colour", testForm{Name: "Algo", Colour: "teal", Days: []int{0}}, "colour", "must be one of: red blue"},
		{"no days", testForm{Name: "Algo", Colour: "red", Days: []int{}}, "days", "must have at least 1 selected"},
		{"weekend", testForm{Name: "Algo", Colour: "red", Days: []int{5}}, "days[0]", "must be less than or equal to 4"},
		{"bad username", testForm{Name: "Algo", Colour: "red", Days: []int{0}, Username: "no spaces"}, "username", "may only contain letters, digits and @.+-_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.form)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.message, details[tt.field])
			assert.Equal(t, tt.field+" "+tt.message, domainErr.Message)
		})
	}
}

func TestCleanText(t *testing.T) {
	v := New()

	assert.Equal(t, "Algorithms", v.CleanText("  <b>Algorithms</b> "))
	assert.Equal(t, "", v.CleanText("<script>alert(1)</script>"))
	assert.Equal(t, "Data & Ethics", v.CleanText("Data & Ethics"))
}
