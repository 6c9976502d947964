package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		err      ValidationError
		wantMsg  string
		wantFlds map[string]string
	}{
		{name: "empty", wantMsg: "invalid input"},
		{
			name:     "fields only",
			err:      ValidationError{Fields: []FieldError{{Field: "slug", Error: "taken"}, {Field: "title", Error: "required"}}},
			wantMsg:  "slug: taken",
			wantFlds: map[string]string{"slug": "taken", "title": "required"},
		},
		{
			name:     "cause wins",
			err:      ValidationError{Err: errors.New("cycle"), Fields: []FieldError{{Field: "blocks", Error: "cycle"}}},
			wantMsg:  "cycle",
			wantFlds: map[string]string{"blocks": "cycle"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.Equal(t, tt.wantFlds, tt.err.FieldMap())
		})
	}
}

func TestIsShutdown(t *testing.T) {
	err := NewShutdownError("draft store closed")
	assert.True(t, IsShutdown(err))
	assert.True(t, IsShutdown(errors.Wrap(err, "writing draft")))
	assert.False(t, IsShutdown(errors.New("draft store closed")))
	assert.False(t, IsShutdown(nil))
}
