package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPeerID(b byte) PeerID {
	var id PeerID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestPeerID(t *testing.T) {
	t.Run("FromPublicKey", func(t *testing.T) {
		a := PeerIDFromPublicKey([]byte("public-key-a"))
		b := PeerIDFromPublicKey([]byte("public-key-b"))
		assert.NotEqual(t, a, b)
		assert.Equal(t, a, PeerIDFromPublicKey([]byte("public-key-a")))
	})

	t.Run("StringRoundTrip", func(t *testing.T) {
		id := testPeerID(0x42)
		parsed, err := ParsePeerID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("ParseInvalid", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
		}{
			{"empty", ""},
			{"not base58", "0OIl"},
			{"too short", "3mJr7AoUXx2Wqd"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := ParsePeerID(tt.input)
				assert.ErrorIs(t, err, ErrInvalidPeerID)
			})
		}
	})

	t.Run("FromBytes", func(t *testing.T) {
		id := testPeerID(7)
		got, err := PeerIDFromBytes(id.Bytes())
		require.NoError(t, err)
		assert.Equal(t, id, got)

		_, err = PeerIDFromBytes([]byte("short"))
		assert.ErrorIs(t, err, ErrInvalidPeerIDLength)

		_, err = PeerIDFromBytes(nil)
		assert.ErrorIs(t, err, ErrInvalidPeerIDLength)
	})

	t.Run("BytesIsCopy", func(t *testing.T) {
		id := testPeerID(1)
		b := id.Bytes()
		b[0] = 0xFF
		assert.Equal(t, byte(1), id[0])
	})

	t.Run("ShortString", func(t *testing.T) {
		id := testPeerID(9)
		assert.Len(t, id.ShortString(), 8)
		assert.Equal(t, "", EmptyPeerID.ShortString())
	})

	t.Run("JSON", func(t *testing.T) {
		id := testPeerID(3)
		data, err := json.Marshal(map[string]PeerID{"id": id})
		require.NoError(t, err)

		var out map[string]PeerID
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, id, out["id"])
	})
}
