package updatemanager

import (
	"github.com/netbirdio/directupdate/client/internal/updatemanager/artifact"
	"github.com/netbirdio/directupdate/client/internal/updatemanager/descriptor"
)

// Decision is the outcome of one evaluation
type Decision struct {
	State State
	// Prune asks the caller to delete an existing artifact that cannot be used
	Prune bool
}

// Evaluate decides the state for cfg given the local artifact. info is ignored when no
// update is available, so an up-to-date check never depends on or modifies local files.
func Evaluate(cfg *descriptor.UpdateConfig, info artifact.Info, profile Profile) Decision {
	if !cfg.UpdateAvailable() {
		return Decision{State: State{Kind: UpToDate}}
	}

	if profile.Usable(info) {
		return Decision{State: State{Kind: ReadyToInstall}}
	}

	return Decision{
		State: availableState(cfg),
		Prune: info.Exists,
	}
}

func availableState(cfg *descriptor.UpdateConfig) State {
	if cfg.ImmediateUpdate {
		return State{Kind: ImmediateAvailable}
	}
	return State{Kind: FlexibleAvailable}
}
