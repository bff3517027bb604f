// Package ui implements an interactive terminal dashboard using bubbletea's Elm architecture.
//
// The dashboard shows accumulated listening time per genre as a ranked list,
// refreshed on a short interval while the tracker loop runs in the background.
// Tracker events (credits, newly discovered genres, sampler failures) arrive
// over a channel and are surfaced on a status line beneath the list.
//
// The [Model] implements bubbletea's standard Init/Update/View pattern.
// Keyboard navigation uses vim-style bindings (j/k, r, q) with contextual
// help displayed via charmbracelet/bubbles/help.
package ui
