// Package project defines the Context value that locates an item within the
// project hierarchy. Contexts drive settings resolution and registry linking.
package project
