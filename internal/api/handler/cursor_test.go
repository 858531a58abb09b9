package handler

import (
	"testing"
	"time"

	"github.com/cuongbtq/marketops-be/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	original := &storage.Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 123456789, time.UTC),
		ID:        "b3c1a6de-9d55-4f0e-8c47-2f6f17f2a9d1",
	}

	decoded, err := DecodeCursor(EncodeCursor(original))

	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, original.ID, decoded.ID)
	assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
}

func TestDecodeCursor(t *testing.T) {
	tests := []struct {
		name    string
		cursor  string
		wantErr bool
		wantNil bool
	}{
		{name: "empty cursor means first page", cursor: "", wantNil: true},
		{name: "not base64", cursor: "%%%", wantErr: true},
		{name: "missing separator", cursor: "bm9zZXBhcmF0b3I=", wantErr: true},
		{name: "non-numeric timestamp", cursor: "YWJjfGlk", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeCursor(tt.cursor)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, decoded)
			}
		})
	}
}
