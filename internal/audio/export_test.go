package audio

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// ExtractArgs exports extractArgs for testing.
var ExtractArgs = extractArgs

// Transcoder exports transcoder interface for testing.
type Transcoder = transcoder

// Process exports process interface for testing.
type Process = process

// FileStatter exports fileStatter interface for testing.
type FileStatter = fileStatter

// FileRemover exports fileRemover interface for testing.
type FileRemover = fileRemover
