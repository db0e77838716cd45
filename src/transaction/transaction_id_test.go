package transaction

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionIDString(t *testing.T) {
	id := NewTransactionIDWithValidStart(entity.NewID(0, 0, 2), time.Unix(1554158542, 1))

	assert.Equal(t, "0.0.2@1554158542.000000001", id.String())

	id.Scheduled = true
	id.Nonce = 4
	assert.Equal(t, "0.0.2@1554158542.000000001?scheduled/4", id.String())

	parsed, err := ParseTransactionID(id.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(id))

	for _, bad := range []string{"", "0.0.2", "0.0.2@", "0.0.2@123", "0.0.2@1.x", "0.0.2@1.2/x", "a.b.c@1.2"} {
		_, err := ParseTransactionID(bad)
		assert.Error(t, err, bad)
	}
}

func TestTransactionIDChunk(t *testing.T) {
	id := NewTransactionIDWithValidStart(entity.NewID(0, 0, 2), time.Unix(100, 999999998))

	assert.True(t, id.Chunk(0).Equal(id))
	assert.Equal(t, "0.0.2@100.999999999", id.Chunk(1).String())
	assert.Equal(t, "0.0.2@101.000000000", id.Chunk(2).String())
}

func TestNewTransactionID(t *testing.T) {
	id := NewTransactionID(entity.NewID(0, 0, 2))

	assert.False(t, id.IsZero())
	assert.True(t, id.ValidStart.Before(time.Now().Add(-5*time.Second)))
	assert.True(t, id.ValidStart.After(time.Now().Add(-9*time.Second)))

	assert.True(t, TransactionIDFromWire(id.ToWire()).Equal(id))
	assert.True(t, TransactionID{}.IsZero())
}
