//go:build unix

package procexec

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setGroup starts the command as leader of a new process group so that
// signalGroup reaches the tool and everything it spawned.
func setGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func setCmdLine(*exec.Cmd, string) {}

func signalGroup(cmd *exec.Cmd, force bool) error {
	if cmd == nil || cmd.Process == nil {
		return os.ErrProcessDone
	}

	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}

	// Negative pid addresses the group; pgid == pid because of Setpgid.
	if err := syscall.Kill(-cmd.Process.Pid, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		// Group signalling can be refused; fall back to the leader alone.
		if perr := cmd.Process.Signal(sig); perr != nil {
			return perr
		}
	}
	return nil
}
