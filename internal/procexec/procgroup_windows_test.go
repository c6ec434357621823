//go:build windows

package procexec

import (
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepare_ShellSetsRawCmdLine(t *testing.T) {
	spec := Spec{
		Name: `C:\Program Files\nodejs\npm.cmd`,
		Args: []string{"run", "start", `C:\Users\Jane Doe\Temp\view_nwb1`},
	}
	e := NewWithMode(ModeShell)
	name, args := e.argv(spec)
	cmd := exec.Command(name, args...)
	e.prepare(cmd, spec)

	require.NotNil(t, cmd.SysProcAttr)
	assert.Equal(t, shellCommandLine(spec), cmd.SysProcAttr.CmdLine)
	assert.NotZero(t, cmd.SysProcAttr.CreationFlags&syscall.CREATE_NEW_PROCESS_GROUP)
}
