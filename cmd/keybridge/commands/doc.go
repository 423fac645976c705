// Package commands defines the keybridge CLI and wires dependencies for subcommands.
//
// Commands
//
//   - test           Bind to the provider and run a connectivity test
//   - encrypt        Encrypt stdin or --in for the configured identity
//   - decrypt        Decrypt base64 ciphertext from stdin or --in
//   - config show    Print the effective preferences
//   - config set     Change one preference
//
// # Implementation
//
// The root command loads the preferences and opens a delegation context
// before any provider subcommand runs. Passphrase prompts raised by the
// provider are answered from -p or read from the terminal.
package commands
