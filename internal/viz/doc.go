// Package viz renders solver output in the terminal: convergence and
// trajectory charts over asciigraph, a braille canvas for phase plots,
// and lipgloss-styled run summaries.
package viz
