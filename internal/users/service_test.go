package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"", RoleUser, false},
		{"admin", RoleAdmin, false},
		{" Agent ", RoleAgent, false},
		{"USER", RoleUser, false},
		{"owner", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeRole(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidRole, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestServiceWithoutStore(t *testing.T) {
	s := NewService(nil, nil)
	ctx := context.Background()

	_, err := s.Get(ctx, "550e8400-e29b-41d4-a716-446655440000")
	assert.Error(t, err)
	_, err = s.ListUsersByRole(ctx, RoleAdmin)
	assert.Error(t, err)
	_, err = s.Login(ctx, "a", "b")
	assert.Error(t, err)
}
