// Package report writes check results.
//
// Three formats are supported: text (one "[✅ OK] label: detail" line per
// account, streamed), JSON lines (one object per account, streamed) and
// Markdown (a summary document written once the run has finished).
package report
