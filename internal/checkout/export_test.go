package checkout

import "os/exec"

// UseCommand replaces the browser launcher with the named executable.
func (n *BrowserNavigator) UseCommand(name string) {
	n.command = func(url string) *exec.Cmd { return exec.Command(name, url) }
}
