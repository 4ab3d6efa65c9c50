// Package diag models compiler diagnostics and the error signature a reduction
// must preserve.
//
// # Purpose
//
//   - Decode compiler output (cargo JSON messages, rustc human text, Go build
//     text) into a uniform Diagnostic list.
//   - Match diagnostics against a Signature: error code, message fragment and
//     optionally the file the error is reported in.
//   - Render diagnostics as stable single-line text for CLI output and reports.
//
// # Scope
//
// Package diag does no process management and no IO beyond reading the byte
// slices it is handed. Running the compiler lives in internal/oracle.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error. Notes and help lines decode to Info.
//   - Code – the compiler's error code ("E0384"); empty when the compiler has none.
//   - Message – the primary message, without the code prefix.
//   - File, Line, Col – primary location, 1-based; zero when unknown.
//
// Bag collects diagnostics with a cap, the same way every decoder fills it.
//
// # Matching
//
// Messages are compared after Unicode NFC normalization and whitespace
// collapsing, so formatting differences between compiler versions and
// terminals do not break a match. A Signature with an empty Code or File
// matches any value there; an empty Fragment matches any message.
package diag
