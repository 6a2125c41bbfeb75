package browser

import (
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

// Launcher opens the admin or display view in a local browser
type Launcher struct {
	browsers  []Browser
	preferred string
	lookPath  func(file string) (string, error)
	start     func(name string, args ...string) error
}

// Browser describes how to hand a URL to one browser on this platform
type Browser struct {
	Name    string
	Command string
	Args    func(url string) []string
}

// NewLauncher creates a launcher. preferred names a browser to try first
// (case-insensitive); empty keeps the platform order.
func NewLauncher(preferred string) *Launcher {
	return &Launcher{
		browsers:  platformBrowsers(runtime.GOOS),
		preferred: preferred,
		lookPath:  exec.LookPath,
		start:     startDetached,
	}
}

// ViewURL builds the URL of a view served on host:port. Wildcard hosts are
// replaced by localhost.
func ViewURL(host string, port int, path string) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + path
}

// Launch opens url with the preferred browser, falling back to the platform default
func (l *Launcher) Launch(url string, skip bool) error {
	if skip {
		return nil
	}

	browser, err := l.selectBrowser()
	if err != nil {
		return fmt.Errorf("browser selection: %w", err)
	}

	if err := l.start(browser.Command, browser.Args(url)...); err != nil {
		return fmt.Errorf("launching %s: %w", browser.Name, err)
	}
	return nil
}

// Detect returns the name of the browser Launch would use
func (l *Launcher) Detect() (string, error) {
	browser, err := l.selectBrowser()
	if err != nil {
		return "", err
	}
	return browser.Name, nil
}

func (l *Launcher) selectBrowser() (*Browser, error) {
	if len(l.browsers) == 0 {
		return nil, errors.New("no browsers available")
	}

	for _, candidate := range l.ordered() {
		if _, err := l.lookPath(candidate.Command); err == nil {
			return &candidate, nil
		}
	}

	return nil, errors.New("no supported browsers found on this system")
}

// ordered puts the preferred browser first
func (l *Launcher) ordered() []Browser {
	if l.preferred == "" {
		return l.browsers
	}
	out := make([]Browser, 0, len(l.browsers))
	for _, b := range l.browsers {
		if strings.EqualFold(b.Name, l.preferred) {
			out = append(out, b)
		}
	}
	for _, b := range l.browsers {
		if !strings.EqualFold(b.Name, l.preferred) {
			out = append(out, b)
		}
	}
	return out
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...) // #nosec G204 - command comes from the fixed platform table
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func urlOnly(url string) []string { return []string{url} }

func platformBrowsers(goos string) []Browser {
	switch goos {
	case "darwin":
		return []Browser{
			{Name: "Default", Command: "open", Args: urlOnly},
			{Name: "Chrome", Command: "open", Args: func(url string) []string { return []string{"-a", "Google Chrome", url} }},
			{Name: "Safari", Command: "open", Args: func(url string) []string { return []string{"-a", "Safari", url} }},
			{Name: "Firefox", Command: "open", Args: func(url string) []string { return []string{"-a", "Firefox", url} }},
		}
	case "linux":
		return []Browser{
			{Name: "xdg-open", Command: "xdg-open", Args: urlOnly},
			{Name: "Chrome", Command: "google-chrome", Args: urlOnly},
			{Name: "Chromium", Command: "chromium", Args: urlOnly},
			{Name: "Firefox", Command: "firefox", Args: urlOnly},
		}
	case "windows":
		return []Browser{
			{Name: "Default", Command: "cmd", Args: func(url string) []string { return []string{"/c", "start", "", url} }},
			{Name: "Chrome", Command: "cmd", Args: func(url string) []string { return []string{"/c", "start", "chrome", url} }},
			{Name: "Edge", Command: "cmd", Args: func(url string) []string { return []string{"/c", "start", "msedge", url} }},
		}
	default:
		return nil
	}
}

var _ ports.BrowserLauncher = (*Launcher)(nil)
