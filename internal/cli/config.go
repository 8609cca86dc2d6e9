package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/alnah/go-captions/internal/config"
	"github.com/alnah/go-captions/internal/lang"
	"github.com/alnah/go-captions/internal/transcribe"
)

// envFallbacks maps each config key to its environment variable.
var envFallbacks = map[string]string{
	config.KeyLanguage:  config.EnvLanguage,
	config.KeyProvider:  config.EnvProvider,
	config.KeyOutputDir: config.EnvOutputDir,
}

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/go-captions/config.toml.
Settings can also be provided via environment variables.

Supported settings:
  language      Default spoken language (env: CAPTIONS_LANGUAGE)
  provider      Default speech-to-text provider (env: CAPTIONS_PROVIDER)
  output-dir    Default directory for caption files (env: CAPTIONS_OUTPUT_DIR)`,
		Example: `  captions config set language fr
  captions config set output-dir ~/Videos/captions
  captions config get provider
  captions config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value. An empty value unsets the key.

Supported keys:
  language      BCP 47 tag (en, fr, pt-BR)
  provider      assemblyai or openai
  output-dir    Created if it doesn't exist`,
		Example: `  captions config set language pt-BR
  captions config set provider openai
  captions config set output-dir ""`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  captions config get language`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable fallbacks.`,
		Example: `  captions config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if !isValidConfigKey(key) {
		return fmt.Errorf("%w: %q (valid keys: %v)", config.ErrInvalidKey, key, config.Keys)
	}

	normalized, err := normalizeConfigValue(key, value)
	if err != nil {
		return err
	}

	if err := config.Save(key, normalized); err != nil {
		return err
	}

	if normalized == "" {
		fmt.Fprintf(env.Stderr, "Unset %s\n", key)
		return nil
	}
	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, normalized)
	return nil
}

// normalizeConfigValue validates value for key and returns the form to store.
// Empty values pass through so the key can be unset.
func normalizeConfigValue(key, value string) (string, error) {
	if value == "" {
		return "", nil
	}

	switch key {
	case config.KeyLanguage:
		l, err := lang.Parse(value)
		if err != nil {
			return "", err
		}
		return l.String(), nil
	case config.KeyProvider:
		p, err := transcribe.ParseProvider(value)
		if err != nil {
			return "", err
		}
		return string(p), nil
	case config.KeyOutputDir:
		expanded := config.ExpandPath(value)
		if err := config.EnsureOutputDir(expanded); err != nil {
			return "", fmt.Errorf("invalid output-dir: %w", err)
		}
		return expanded, nil
	}
	return value, nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !isValidConfigKey(key) {
		return fmt.Errorf("%w: %q (valid keys: %v)", config.ErrInvalidKey, key, config.Keys)
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}

	// Check environment variable fallback.
	if value == "" {
		value = env.Getenv(envFallbacks[key])
	}

	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}

	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	// Add environment variable values for completeness.
	for _, key := range config.Keys {
		if _, ok := data[key]; ok {
			continue
		}
		if envVal := env.Getenv(envFallbacks[key]); envVal != "" {
			data[key] = envVal + " (from env)"
		}
	}

	if len(data) == 0 {
		fmt.Fprintln(env.Stdout, "No configuration set.")
		fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range config.Keys {
			fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}

	for _, key := range config.Keys {
		if value, ok := data[key]; ok {
			fmt.Fprintf(env.Stdout, "%s=%s\n", key, value)
		}
	}

	return nil
}

// isValidConfigKey checks if a key is a valid configuration key.
func isValidConfigKey(key string) bool {
	return slices.Contains(config.Keys, key)
}
