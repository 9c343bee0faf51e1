// Package panel serves the browser dashboard for powerd.
//
// The dashboard is a single page that opens the /ws stream, renders one row
// per device and posts to /update when a switch is clicked. It is embedded
// into the binary with go:embed; api.static_dir may point at a directory
// that replaces it.
package panel
