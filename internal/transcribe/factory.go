package transcribe

// New creates the transcriber for provider p.
func New(p Provider, apiKey string) (Transcriber, error) {
	switch p {
	case ProviderAssemblyAI:
		return NewAssemblyAI(apiKey)
	case ProviderOpenAI:
		return NewOpenAI(apiKey)
	default:
		_, err := ParseProvider(string(p))
		return nil, err
	}
}
