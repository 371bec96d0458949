package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		mark error
		kind string
	}{
		{"not found", NotFound("Booking with id %d not found", 7), ErrNotFound, "not_found"},
		{"validation", Validation("bad dates"), ErrValidation, "validation"},
		{"forbidden", Forbidden("not yours"), ErrForbidden, "forbidden"},
		{"comment", CommentNotEligible("no past booking"), ErrCommentNotEligible, "comment_not_eligible"},
		{"conflict", Conflict("already approved"), ErrConflict, "conflict"},
		{"plain", errors.New("boom"), nil, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.mark != nil {
				assert.True(t, errors.Is(tt.err, tt.mark))
			}
			assert.Equal(t, tt.kind, Kind(tt.err))
		})
	}
}

func TestMessagesArePreserved(t *testing.T) {
	err := NotFound("Booking with id %d not found", 7)
	assert.Equal(t, "Booking with id 7 not found", err.Error())
}

func TestForbiddenIsAlsoValidation(t *testing.T) {
	err := Forbidden("owner cannot book own item")
	assert.True(t, Is(err, ErrForbidden))
	assert.True(t, Is(err, ErrValidation))
	assert.False(t, Is(err, ErrNotFound))
}

func TestMarksSurviveWrapping(t *testing.T) {
	base := Conflict("booking 3 already decided")
	wrapped := fmt.Errorf("approve: %w", fmt.Errorf("failed to update booking status: %w", base))
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, "conflict", Kind(wrapped))
}
