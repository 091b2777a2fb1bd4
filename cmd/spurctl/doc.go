// SPDX-License-Identifier: MPL-2.0

// Command spurctl is a thin CLI over the spur library: it runs a
// command against the local machine or against a named SSH profile
// loaded from a TOML config file, demonstrating the library's Shell
// contract end to end.
package main
