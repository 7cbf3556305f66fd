// Package persistence imports and exports controller configurations as JSON
// documents and stores them on disk.
//
// The document keys match the configuration files written by the browser
// editor, so files can move between the two tools. Imports are strict:
// unknown keys are rejected, and fields are merged one by one into the
// target configuration only where the target device supports them.
package persistence
