package syscfg

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bclabs/school-portal-api/internal/models"
)

func TestFileStoreCreatesDefaultDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "systemConfig.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)

	cfg, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, cfg.Installed)
	assert.Equal(t, models.LicenseInactive, cfg.LicenseStatus)
	assert.Nil(t, cfg.LicenseExpiry)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileStoreUpdateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "systemConfig.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	_, err = store.Update(context.Background(), func(cfg *models.SystemConfig) error {
		cfg.Installed = true
		cfg.SchoolName = "Demo"
		cfg.ProductKey = "BC-001"
		cfg.InstalledAt = &now
		return nil
	})
	require.NoError(t, err)

	// Reopen from disk to verify persistence.
	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	cfg, err := reopened.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.Installed)
	assert.Equal(t, "Demo", cfg.SchoolName)
	assert.Equal(t, "BC-001", cfg.ProductKey)
	require.NotNil(t, cfg.InstalledAt)
	assert.True(t, cfg.InstalledAt.Equal(now))
}

func TestFileStoreConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "systemConfig.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.Update(context.Background(), func(cfg *models.SystemConfig) error {
				if cfg.LicenseExpiry == nil {
					expiry := time.Now().UTC()
					cfg.LicenseExpiry = &expiry
				}
				expiry := cfg.LicenseExpiry.Add(24 * time.Hour)
				cfg.LicenseExpiry = &expiry
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cfg, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg.LicenseExpiry)
	// Every increment survived the concurrent read-modify-write cycle.
	first := cfg.LicenseExpiry.Add(-time.Duration(writers) * 24 * time.Hour)
	assert.True(t, first.Before(time.Now()))
}

func TestMemStoreUpdateMutationErrorLeavesStateUntouched(t *testing.T) {
	store := NewMemStore(models.SystemConfig{SchoolName: "Demo"})

	_, err := store.Update(context.Background(), func(cfg *models.SystemConfig) error {
		cfg.SchoolName = "Changed"
		return assert.AnError
	})
	require.Error(t, err)

	cfg, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Demo", cfg.SchoolName)
}
