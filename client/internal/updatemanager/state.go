package updatemanager

import "fmt"

// Kind enumerates the states of the update pipeline
type Kind int

const (
	NotChecked Kind = iota
	UpToDate
	ImmediateAvailable
	FlexibleAvailable
	Downloading
	DownloadComplete
	ReadyToInstall
	InstallStarted
	DownloadFailed
	InstallFailed
)

func (k Kind) String() string {
	switch k {
	case NotChecked:
		return "NotChecked"
	case UpToDate:
		return "UpToDate"
	case ImmediateAvailable:
		return "ImmediateAvailable"
	case FlexibleAvailable:
		return "FlexibleAvailable"
	case Downloading:
		return "Downloading"
	case DownloadComplete:
		return "DownloadComplete"
	case ReadyToInstall:
		return "ReadyToInstall"
	case InstallStarted:
		return "InstallStarted"
	case DownloadFailed:
		return "DownloadFailed"
	case InstallFailed:
		return "InstallFailed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// State is the current position of the pipeline. Progress is only set while
// Downloading and Reason only for the failure kinds.
type State struct {
	Kind     Kind
	Progress int
	Reason   string
}

func (s State) String() string {
	switch s.Kind {
	case Downloading:
		return fmt.Sprintf("%s(%d%%)", s.Kind, s.Progress)
	case DownloadFailed, InstallFailed:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Reason)
	default:
		return s.Kind.String()
	}
}

// Available reports whether the state offers an update the user has not downloaded yet
func (s State) Available() bool {
	return s.Kind == ImmediateAvailable || s.Kind == FlexibleAvailable
}
