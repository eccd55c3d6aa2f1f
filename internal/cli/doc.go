// Package cli wires the hostprep commands together.
//
// Commands:
//
//	hostprep provision <user> <folder>  - Provision this host
//	hostprep init                       - Create .hostprep.yaml
//	hostprep version                    - Print version information
//	hostprep completion                 - Generate shell completions
//
// The CLI layer is glue: argument parsing, flag/config merging, the
// confirmation prompt, and exit codes. All host mutation lives in
// internal/provision.
package cli
