package ports

// BrowserLauncher opens the admin or display view once the server is up
type BrowserLauncher interface {
	// Launch opens url unless skip is set
	Launch(url string, skip bool) error
	// Detect returns the name of the browser Launch would use
	Detect() (string, error)
}
