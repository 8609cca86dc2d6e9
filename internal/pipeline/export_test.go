package pipeline

// Test-only exports.

type FileSystem = fileSystem

type OSFileSystem = osFileSystem

var WithFileSystem = withFileSystem

var TranscriptionKind = transcriptionKind

var ExtractionKind = extractionKind
