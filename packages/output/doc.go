// Package output renders run reports for humans (console) and machines
// (JSON, JUnit XML, TAP).
package output
