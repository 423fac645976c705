// Package app wires application dependencies for the CLI.
//
// It loads the preferences from Config.Home, builds the logger and provider
// connector, and opens the delegation context, exposing them via the Wire
// struct for commands to use.
package app
