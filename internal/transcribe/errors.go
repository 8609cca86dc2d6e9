package transcribe

import "errors"

// ErrAPIKeyMissing indicates the provider's API key is not configured.
var ErrAPIKeyMissing = errors.New("API key not set")

// ErrUnknownProvider indicates an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown transcription provider")

// ErrMalformedResponse indicates the provider returned a body that could not be decoded.
var ErrMalformedResponse = errors.New("malformed provider response")
