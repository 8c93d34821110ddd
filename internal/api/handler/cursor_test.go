package handler

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCursor_RoundTrip(t *testing.T) {
	in := &HistoryCursor{UserID: 42, Page: 3}
	out, err := DecodeHistoryCursor(EncodeHistoryCursor(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeHistoryCursor_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{name: "not base64", cursor: "%%%"},
		{name: "one part", cursor: base64.URLEncoding.EncodeToString([]byte("42"))},
		{name: "non numeric page", cursor: base64.URLEncoding.EncodeToString([]byte("42|x"))},
		{name: "zero page", cursor: base64.URLEncoding.EncodeToString([]byte("42|0"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHistoryCursor(tt.cursor)
			assert.Error(t, err)
		})
	}

	cursor, err := DecodeHistoryCursor("")
	assert.NoError(t, err)
	assert.Nil(t, cursor)
}
