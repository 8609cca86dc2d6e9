package transcribe

// Exports for testing. These allow black-box tests to inject dependencies
// without modifying the public API.

// HTTPDoer exports httpDoer for mock implementations.
type HTTPDoer = httpDoer

// NewTestOpenAI creates an OpenAI transcriber backed by a mock audioTranscriber.
func NewTestOpenAI(client audioTranscriber, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{client: client, apiKey: "test-api-key", model: ModelWhisper1}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Function exports for unit testing internal logic.
var (
	ClassifyError          = classifyError
	NormalizeWords         = normalizeWords
	SpreadSegment          = spreadSegment
	AssemblyAILanguageCode = assemblyAILanguageCode
)
