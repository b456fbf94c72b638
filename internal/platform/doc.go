package platform

// Package platform contains OS integration glue: application directories,
// file name sanitizing and revealing finished downloads in the file manager.
