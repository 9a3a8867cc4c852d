package loopback

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// Opener muestra la página de autorización al usuario.
type Opener func(url string) error

// BrowserOpener abre el browser del sistema.
func BrowserOpener(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// PrintOpener escribe la URL en w para que el usuario la abra a mano (entornos sin browser).
func PrintOpener(w io.Writer) Opener {
	return func(url string) error {
		_, err := fmt.Fprintf(w, "Open this URL in your browser to continue:\n\n  %s\n\n", url)
		return err
	}
}
