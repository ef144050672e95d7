package artifact

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "app_updates"))
	require.NoError(t, err)
	return s
}

func TestStore_Stat(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, Info{}, s.Stat("missing.apk"))

	require.NoError(t, os.WriteFile(s.Path("empty.apk"), nil, 0o600))
	info := s.Stat("empty.apk")
	assert.True(t, info.Exists)
	assert.True(t, info.Empty())
	assert.True(t, info.Readable)

	require.NoError(t, os.WriteFile(s.Path("app.apk"), []byte("content"), 0o600))
	info = s.Stat("app.apk")
	assert.Equal(t, Info{Exists: true, Size: 7, Readable: true}, info)
	assert.False(t, info.Empty())

	require.NoError(t, os.Mkdir(s.Path("dir.apk"), 0o700))
	assert.False(t, s.Stat("dir.apk").Exists)
}

func TestStore_StatErrorIsNotAbsence(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on ENOTDIR")
	}

	s := newTestStore(t)
	require.NoError(t, os.Remove(s.Dir()))
	require.NoError(t, os.WriteFile(s.Dir(), []byte("not a directory"), 0o600))

	info := s.Stat("app.apk")
	assert.Equal(t, Info{Exists: true}, info)
	assert.True(t, info.Empty())
}

func TestStore_RemoveIsBestEffort(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, os.WriteFile(s.Path("app.apk"), []byte("x"), 0o600))
	s.Remove("app.apk")
	assert.NoFileExists(t, s.Path("app.apk"))

	// removing twice must not panic or fail
	s.Remove("app.apk")
}

func TestStore_CopyTo(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path("app.apk"), []byte("payload"), 0o600))

	dst, err := s.CopyTo("app.apk", filepath.Join(t.TempDir(), "external"))
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.FileExists(t, s.Path("app.apk"))

	_, err = s.CopyTo("missing.apk", t.TempDir())
	assert.Error(t, err)
}

func TestStore_Clean(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path("a.apk"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(s.Path("b.apk"), []byte("b"), 0o600))
	require.NoError(t, os.Mkdir(s.Path("keep"), 0o700))

	require.NoError(t, s.Clean())

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep", entries[0].Name())
}

func TestStore_LockSerializesSameArtifact(t *testing.T) {
	s := newTestStore(t)

	unlock := s.Lock("app.apk")

	acquired := make(chan struct{})
	go func() {
		release := s.Lock("app.apk")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(20 * time.Millisecond):
	}

	// other artifacts are independent
	other := s.Lock("other.apk")
	other()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestKeyedMutex_ForgetsReleasedKeys(t *testing.T) {
	k := newKeyedMutex()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("key")
			unlock()
		}()
	}
	wg.Wait()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}
