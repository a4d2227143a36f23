package page

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenInBrowser opens url in the default system browser without waiting.
func OpenInBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("browser opening not supported on %s", runtime.GOOS)
	}
	return cmd.Start()
}
