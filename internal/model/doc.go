// Package model defines the data structures shared by the check pipeline,
// the report writers and the history database.
//
// This package contains the following main types:
//   - Account: One set of connection parameters, from flags or a CSV row
//   - Check: An account moving through the pipeline and its final outcome
//   - Summary: Counts of one run, per outcome and per result category
//
// Passwords live only in the probe request carried by a Check and are
// cleared once the probe has finished.
package model
