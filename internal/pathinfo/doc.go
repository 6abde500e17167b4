// Package pathinfo provides file path parsing helpers used by collectors and
// publish plugins: version and frame number extraction, frame sequence
// grouping, and publish path template expansion.
package pathinfo
