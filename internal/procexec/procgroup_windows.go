//go:build windows

package procexec

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

func setGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}

// setCmdLine bypasses the default argv escaping, which cmd.exe does not
// understand.
func setCmdLine(cmd *exec.Cmd, line string) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CmdLine = line
}

// signalGroup has no graceful variant on Windows: taskkill /T takes down
// the cmd.exe wrapper and the node tree below it.
func signalGroup(cmd *exec.Cmd, _ bool) error {
	if cmd == nil || cmd.Process == nil {
		return os.ErrProcessDone
	}

	pid := strconv.Itoa(cmd.Process.Pid)
	// #nosec G204 - pid is our own child
	if err := exec.Command("taskkill", "/T", "/F", "/PID", pid).Run(); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
