package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func openTemp(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.db")
	store, err := OpenBolt(path)
	require.NoError(t, err)
	return store, path
}

func TestBoltStore_DefaultsWhenEmpty(t *testing.T) {
	store, _ := openTemp(t)
	defer store.Close()

	s, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Settings{AutoWalkIn: true, DefaultTaxRate: 0}, s)
}

func TestBoltStore_SaveSurvivesReopen(t *testing.T) {
	store, path := openTemp(t)
	require.NoError(t, store.Save(Settings{AutoWalkIn: false, DefaultTaxRate: 0.0875}))
	require.NoError(t, store.Close())

	reopened, err := OpenBolt(path)
	require.NoError(t, err)
	defer reopened.Close()

	s, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, Settings{AutoWalkIn: false, DefaultTaxRate: 0.0875}, s)
}

func TestBoltStore_StoresNamedKeys(t *testing.T) {
	store, _ := openTemp(t)
	defer store.Close()
	require.NoError(t, store.Save(Settings{AutoWalkIn: true, DefaultTaxRate: 0.08}))

	err := store.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("pos_settings"))
		require.NotNil(t, b)
		assert.Equal(t, "true", string(b.Get([]byte("pos_autoWalkIn"))))
		assert.Equal(t, "0.08", string(b.Get([]byte("pos_defaultTaxRate"))))
		return nil
	})
	require.NoError(t, err)
}

func TestBoltStore_UnreadableValuesFallBack(t *testing.T) {
	store, _ := openTemp(t)
	defer store.Close()
	err := store.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Put(keyAutoWalkIn, []byte("maybe")); err != nil {
			return err
		}
		return b.Put(keyDefaultTaxRate, []byte("-3"))
	})
	require.NoError(t, err)

	s, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestBoltStore_RejectsNegativeRate(t *testing.T) {
	store, _ := openTemp(t)
	defer store.Close()
	assert.ErrorIs(t, store.Save(Settings{DefaultTaxRate: -0.1}), ErrNegativeTaxRate)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore(Default())
	require.NoError(t, m.Save(Settings{AutoWalkIn: false, DefaultTaxRate: 0.05}))
	assert.ErrorIs(t, m.Save(Settings{DefaultTaxRate: -1}), ErrNegativeTaxRate)

	s, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, Settings{AutoWalkIn: false, DefaultTaxRate: 0.05}, s)
	assert.Equal(t, 1, m.Saves())
}
