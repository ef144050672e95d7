//go:generate mockgen -source=installer.go -destination=mock_installer.go -package=installer

package installer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

const pathPlaceholder = "{path}"

// LocalInstaller hands a downloaded artifact to the platform package installer.
// A nil error means the handoff was accepted, not that the installation finished.
type LocalInstaller interface {
	RequestInstall(ctx context.Context, path string) error
}

// Command runs an external program for every install request, e.g. "adb install -r {path}".
// The artifact path is appended when the template has no placeholder.
type Command struct {
	args []string
}

func NewCommand(template string) (*Command, error) {
	args := strings.Fields(template)
	if len(args) == 0 {
		return nil, errors.New("install command cannot be empty")
	}

	placeholder := false
	for _, a := range args[1:] {
		if strings.Contains(a, pathPlaceholder) {
			placeholder = true
			break
		}
	}
	if !placeholder {
		args = append(args, pathPlaceholder)
	}

	return &Command{args: args}, nil
}

func (c *Command) RequestInstall(ctx context.Context, path string) error {
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = strings.ReplaceAll(a, pathPlaceholder, path)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	log.Infof("starting installer: %s", cmd.String())

	out, err := cmd.CombinedOutput()
	if err != nil {
		output := strings.TrimSpace(string(out))
		if output == "" {
			return fmt.Errorf("installer %s: %w", args[0], err)
		}
		return fmt.Errorf("installer %s: %w: %s", args[0], err, output)
	}

	log.Debugf("installer accepted %s", path)
	return nil
}
