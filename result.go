// SPDX-License-Identifier: MPL-2.0

package spur

import (
	"fmt"
	"strings"
)

// ExecutionResult is the outcome of a completed process.
//
// Output and StderrOutput always hold the captured bytes. Text is set
// when an Encoding was requested on the originating CommandOptions; in
// that case OutputText and StderrOutputText hold the decoded strings and
// callers should prefer those over the raw bytes.
type ExecutionResult struct {
	ReturnCode int

	Output       []byte
	StderrOutput []byte

	// Text indicates the originating CommandOptions.Encoding was set, in
	// which case OutputText/StderrOutputText are populated.
	Text             bool
	OutputText       string
	StderrOutputText string
}

// AsError converts the result into a *RunProcessError carrying the same
// three fields.
func (r *ExecutionResult) AsError() *RunProcessError {
	return &RunProcessError{
		ReturnCode:       r.ReturnCode,
		Output:           r.Output,
		StderrOutput:     r.StderrOutput,
		Text:             r.Text,
		OutputText:       r.OutputText,
		StderrOutputText: r.StderrOutputText,
	}
}

// newResult builds an ExecutionResult from a return code and the captured
// stdout/stderr and either returns it or, when the return code signals
// failure and errors aren't allowed, returns the equivalent
// *RunProcessError.
func newResult(returnCode int, allowError bool, text bool, output, stderrOutput []byte, outputText, stderrOutputText string) (*ExecutionResult, error) {
	res := &ExecutionResult{
		ReturnCode:       returnCode,
		Output:           output,
		StderrOutput:     stderrOutput,
		Text:             text,
		OutputText:       outputText,
		StderrOutputText: stderrOutputText,
	}
	if returnCode != 0 && !allowError {
		return nil, res.AsError()
	}
	return res, nil
}

// NewResult is the exported form of newResult, used by substrate
// implementations in the local and ssh packages to assemble the final
// ExecutionResult (or RunProcessError) for a completed process.
func NewResult(returnCode int, allowError bool, text bool, output, stderrOutput []byte, outputText, stderrOutputText string) (*ExecutionResult, error) {
	return newResult(returnCode, allowError, text, output, stderrOutput, outputText, stderrOutputText)
}

// RunProcessError is returned by Run (and by Process.Wait) when a
// process exits with a non-zero return code and AllowError was false. It
// carries the same fields as ExecutionResult.
type RunProcessError struct {
	ReturnCode int

	Output       []byte
	StderrOutput []byte

	Text             bool
	OutputText       string
	StderrOutputText string
}

// Error renders "return code: {n}\noutput: {o}\nstderr output: {e}". When
// the captured fields are raw bytes, each is rendered with a bytes repr
// prefixed by "b"; when they are decoded text, the field is rendered
// verbatim on its own line.
func (e *RunProcessError) Error() string {
	var out, errOut string
	if e.Text {
		out = "\n" + e.OutputText
		errOut = "\n" + e.StderrOutputText
	} else {
		out = byteRepr(e.Output)
		errOut = byteRepr(e.StderrOutput)
	}
	return fmt.Sprintf("return code: %d\noutput: %s\nstderr output: %s", e.ReturnCode, out, errOut)
}

// byteRepr renders b the way spec.md §4.1 requires: a single-quoted
// literal prefixed with "b", using Python bytes-repr escapes (\n, \r, \t,
// \', \\ and \xNN for other non-printable bytes), not Go's.
func byteRepr(b []byte) string {
	var sb strings.Builder
	sb.WriteString("b'")
	for _, c := range b {
		switch c {
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			if c >= 0x20 && c < 0x7f {
				sb.WriteByte(c)
			} else {
				fmt.Fprintf(&sb, `\x%02x`, c)
			}
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
