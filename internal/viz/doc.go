// Package viz renders tank simulations in the terminal.
//
// Static output uses asciigraph:
//
//   - [PlotRun]: level with setpoint, tracking error and control action
//   - [Compare]: several runs overlaid on a shared time axis
//   - [Spectrum]: power spectrum of the tracking error
//
// The interactive front end in package tui builds on the lipgloss [Styles]
// derived from a [Theme], the [TankGauge], and the braille [Canvas].
package viz
