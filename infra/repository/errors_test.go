package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMapGormErrorToDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    error
		expected error
	}{
		{
			name:     "nil error returns nil",
			input:    nil,
			expected: nil,
		},
		{
			name:     "duplicate key error maps to ErrAlreadyExists",
			input:    gorm.ErrDuplicatedKey,
			expected: domain.ErrAlreadyExists,
		},
		{
			name:     "record not found error maps to ErrNotFound",
			input:    gorm.ErrRecordNotFound,
			expected: domain.ErrNotFound,
		},
		{
			name:     "wrapped duplicate key error maps correctly",
			input:    errors.Join(errors.New("outer error"), gorm.ErrDuplicatedKey),
			expected: domain.ErrAlreadyExists,
		},
		{
			name:     "wrapped record not found error maps correctly",
			input:    fmt.Errorf("query: %w", gorm.ErrRecordNotFound),
			expected: domain.ErrNotFound,
		},
		{
			name:     "unknown error becomes a transport error",
			input:    errors.New("connection reset by peer"),
			expected: domain.ErrTransport,
		},
		{
			name:     "cancellation is passed through",
			input:    context.Canceled,
			expected: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := MapGormErrorToDomain("op", tt.input)
			if tt.expected == nil {
				require.NoError(t, result)
				return
			}
			assert.ErrorIs(t, result, tt.expected)
		})
	}
}

func TestMapGormErrorToDomain_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := MapGormErrorToDomain("list accounts", cause)

	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "list accounts", te.Op)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	err := WrapError("get", func() error { return gorm.ErrRecordNotFound })
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, WrapError("noop", func() error { return nil }))
}

func TestNotFoundAs(t *testing.T) {
	assert.Equal(t, domain.ErrUserNotFound, NotFoundAs(domain.ErrNotFound, domain.ErrUserNotFound))
	other := errors.New("boom")
	assert.Equal(t, other, NotFoundAs(other, domain.ErrUserNotFound))
}
