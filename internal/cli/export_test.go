package cli

// Export internal functions for testing.

// RunGenerate exports runGenerate for testing.
var RunGenerate = runGenerate

// GenerateOptions exports generateOptions for testing.
type GenerateOptions = generateOptions

// RunHistory exports runHistory for testing.
var RunHistory = runHistory

// RenderHistory exports renderHistory for testing.
var RenderHistory = renderHistory

// RunConfigSet exports runConfigSet for testing.
var RunConfigSet = runConfigSet

// RunConfigGet exports runConfigGet for testing.
var RunConfigGet = runConfigGet

// RunConfigList exports runConfigList for testing.
var RunConfigList = runConfigList

// ClampParallel exports clampParallel for testing.
var ClampParallel = clampParallel

// IsValidConfigKey exports isValidConfigKey for testing.
var IsValidConfigKey = isValidConfigKey

// LockInputs exports lockInputs for testing.
var LockInputs = lockInputs

// NewFileLocker exports newFileLocker for testing.
var NewFileLocker = newFileLocker
