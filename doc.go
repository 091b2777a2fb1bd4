// SPDX-License-Identifier: MPL-2.0

// Package spur provides a single contract for spawning and controlling
// processes on a local machine or on a remote host reached over SSH.
//
// A caller builds a Shell bound to one substrate — local.New or
// ssh.New — and then uses it to Spawn processes, Run them to completion,
// Open remote files for streaming I/O, and create temporary directories.
// Switching substrates means swapping the Shell implementation; the rest
// of the calling code is unchanged.
package spur
