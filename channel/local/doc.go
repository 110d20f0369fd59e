// Package local provides a shipway.Channel backed by the local machine.
//
// Commands run through os/exec and file operations go straight to the os
// package. It serves two purposes: deploying to the machine the tool runs on
// (useful for staging boxes), and giving tests a real command/FS substrate
// without an SSH server.
//
// Usage:
//
//	ch := local.New()
//	defer ch.Close()
package local
