// Package tui is the interactive bubbletea front end. A run executes on a
// worker goroutine while a progress bar follows it; the finished run is then
// played back at wall-clock speed with play, pause, seek and restart.
package tui
