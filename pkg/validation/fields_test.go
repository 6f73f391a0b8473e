package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldErrorMessage(t *testing.T) {
	err := NewFieldError("max_log_size", "-1", "must be a non-negative integer")

	assert.Equal(t, "invalid configuration: max_log_size: must be a non-negative integer (value: -1)", err.Error())
	assert.False(t, err.Timestamp.IsZero())
}

func TestFieldErrorMessageWithoutValue(t *testing.T) {
	err := NewFieldError("destination", "", "cannot be empty")

	assert.Equal(t, "invalid configuration: destination: cannot be empty", err.Error())
}

func TestNonNegative(t *testing.T) {
	tests := []struct {
		name    string
		value   int64
		wantErr bool
	}{
		{name: "positive", value: 1024, wantErr: false},
		{name: "zero", value: 0, wantErr: false},
		{name: "negative", value: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NonNegative("max_log_size", tt.value)
			if tt.wantErr {
				require.Error(t, err)
				var fieldErr *FieldError
				require.ErrorAs(t, err, &fieldErr)
				assert.Equal(t, "max_log_size", fieldErr.Field)
				assert.Equal(t, "-1", fieldErr.Value)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
