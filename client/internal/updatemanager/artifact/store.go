// Package artifact manages the directory that holds downloaded update artifacts.
package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// Info describes the on-disk state of one artifact
type Info struct {
	Exists   bool
	Size     int64
	Readable bool
}

// Empty reports an existing file without content
func (i Info) Empty() bool {
	return i.Exists && i.Size == 0
}

type Store struct {
	dir   string
	locks *keyedMutex
}

// NewStore creates dir if needed. The directory is private to the current user.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create artifact directory %s: %w", dir, err)
	}
	return &Store{
		dir:   dir,
		locks: newKeyedMutex(),
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns the location of the named artifact inside the store
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Lock serializes access to one artifact. The returned func releases it.
func (s *Store) Lock(name string) func() {
	return s.locks.Lock(s.Path(name))
}

// Stat inspects the named artifact. Errors other than absence are logged and reported as an
// existing, empty and unreadable artifact, which no profile accepts.
func (s *Store) Stat(name string) Info {
	path := s.Path(name)
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}
		}
		log.Warnf("failed to stat artifact %s: %v", path, err)
		return Info{Exists: true}
	}
	if fi.IsDir() {
		return Info{}
	}

	return Info{
		Exists:   true,
		Size:     fi.Size(),
		Readable: readable(path),
	}
}

// Remove deletes the named artifact. Failures are logged and never returned.
func (s *Store) Remove(name string) {
	path := s.Path(name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to remove artifact %s: %v", path, err)
		return
	}
	log.Debugf("removed artifact %s", path)
}

// CopyTo copies the named artifact into dstDir and returns the new path
func (s *Store) CopyTo(name, dstDir string) (string, error) {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dstDir, err)
	}

	dst := filepath.Join(dstDir, name)
	if err := copyFile(s.Path(name), dst); err != nil {
		return "", err
	}
	return dst, nil
}

// Clean removes every regular file in the store directory
func (s *Store) Clean() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var merr *multierror.Error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		unlock := s.Lock(name)
		if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
			merr = multierror.Append(merr, fmt.Errorf("failed to remove %s: %w", name, err))
		}
		unlock()
	}

	return merr.ErrorOrNil()
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnf("failed to close %s: %v", path, err)
		}
	}()

	var b [1]byte
	_, err = f.Read(b[:])
	return err == nil || err == io.EOF
}

func copyFile(src, dst string) error {
	log.Infof("copying %s to %s", src, dst)
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if err := in.Close(); err != nil {
			log.Warnf("failed to close source file: %v", err)
		}
	}()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Warnf("failed to close destination file: %v", err)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	return nil
}
