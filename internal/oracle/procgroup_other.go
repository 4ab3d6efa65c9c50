//go:build !unix

package oracle

import (
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

func signaled(state *os.ProcessState) (os.Signal, bool) {
	return nil, false
}
