//go:build !unix && !windows

package procexec

import (
	"os"
	"os/exec"
)

func setGroup(*exec.Cmd) {}

func setCmdLine(*exec.Cmd, string) {}

func signalGroup(cmd *exec.Cmd, _ bool) error {
	if cmd == nil || cmd.Process == nil {
		return os.ErrProcessDone
	}
	return cmd.Process.Kill()
}
