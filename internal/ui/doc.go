// Package ui provides terminal output for the retools CLI.
//
// One-shot commands print through a Printer: a header banner, styled
// statistics tables, discovered gateways and success or error boxes.
// "monitor --watch" runs WatchModel, a Bubble Tea program that redraws the
// statistics table on a timer and keeps a command line open underneath.
//
// Logging is controlled by RETOOLS_LOG_LEVEL. When it is unset zap output is
// silent so the curated UI output is displayed cleanly.
package ui
