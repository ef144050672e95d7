// Package trigger routes external install requests to the manager that owns the update session.
package trigger

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrUnknownSession = errors.New("unknown install session")

// Installable is the part of the update manager an external trigger may invoke
type Installable interface {
	Install() error
}

// Registry maps session ids to the managers that registered them
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Installable
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]Installable),
	}
}

// Register adds target under a new random session id
func (r *Registry) Register(target Installable) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.sessions[id] = target
	r.mu.Unlock()

	log.Debugf("registered install session %s", id)
	return id
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Trigger asks the manager of session id to install
func (r *Registry) Trigger(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrUnknownSession
	}

	r.mu.RLock()
	target, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownSession
	}

	log.Infof("install triggered for session %s", id)
	return target.Install()
}
