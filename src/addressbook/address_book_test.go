package addressbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBook(t *testing.T) *AddressBook {
	book, err := New(map[string]entity.ID{
		"35.237.200.180:50211":     entity.NewID(0, 0, 3),
		"35.186.191.247:50211":     entity.NewID(0, 0, 4),
		"node05.example.com:50211": entity.NewID(0, 0, 5),
	})
	require.NoError(t, err)

	book.NodeAddresses[0].CertHash = "a1b2c3"
	book.NodeAddresses[0].Description = "node 0"

	return book
}

func TestNew(t *testing.T) {
	book := testBook(t)

	require.Equal(t, 3, book.Len())
	assert.Equal(t, entity.NewID(0, 0, 3), book.NodeAddresses[0].AccountID)
	assert.Equal(t, int64(2), book.NodeAddresses[2].NodeID)

	na, ok := book.ByAccount(entity.MustParseID("0.0.4"))
	require.True(t, ok)
	assert.Equal(t, "35.186.191.247:50211", na.Endpoints[0].String())

	_, err := New(map[string]entity.ID{"no-port": entity.NewID(0, 0, 3)})
	assert.Error(t, err)
}

func TestBytesRoundTrip(t *testing.T) {
	book := testBook(t)

	data, err := book.ToBytes()
	require.NoError(t, err)

	decoded, err := FromBytes(data)
	require.NoError(t, err)

	assert.Equal(t, book, decoded)
	assert.Equal(t, book.Network(), decoded.Network())
}

func TestJSONAddressBook(t *testing.T) {
	dir := t.TempDir()

	store := NewJSONAddressBook(filepath.Join(dir, "addressbook.json"))

	// Try a read, should get nothing
	book, err := store.Read()
	assert.Error(t, err)
	assert.Nil(t, book)

	original := testBook(t)
	require.NoError(t, store.Write(original))

	book, err = store.Read()
	require.NoError(t, err)
	assert.Equal(t, original, book)

	// an empty file is an empty book
	require.NoError(t, os.WriteFile(store.Path(), nil, 0600))
	book, err = store.Read()
	require.NoError(t, err)
	assert.Equal(t, 0, book.Len())
}
