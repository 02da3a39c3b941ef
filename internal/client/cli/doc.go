// Package cli is the agrisync command-line front end.
//
// NewRootCommand builds a cobra command tree whose pre-run hook loads the
// configuration, opens the local store and starts the connectivity monitor.
// Subcommands (history, diagnose, show, delete, login, logout, reset, status)
// run one operation each. Running agrisync with no subcommand starts an
// interactive REPL over the same App methods.
package cli
