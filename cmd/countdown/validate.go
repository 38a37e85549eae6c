package main

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/countdown/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the countdown configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with --dump)
	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)

	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		_, _ = fmt.Fprintln(os.Stdout)
		_, _ = red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			_, _ = red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		_, _ = fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if validateDump {
		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))

		dumpConfig(os.Stdout, cfg, config.Defaults())

		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
	}

	return nil
}

// findUnknownKeys loads the config file and checks for unknown keys
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	validKeys := validKeys()

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !validKeys[key] {
			unknown = append(unknown, key)
		}
	}

	return unknown, nil
}

// validKeys derives the set of known keys from the mapstructure tags of config.Config
func validKeys() map[string]bool {
	keys := make(map[string]bool)
	collectKeys(reflect.TypeOf(config.Config{}), "", keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys map[string]bool) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			collectKeys(field.Type, key, keys)
			continue
		}
		keys[key] = true
	}
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(w io.Writer, cfg, defaultCfg *config.Config) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	_, _ = cyan.Fprintln(w, "\n[server]")
	dumpField(w, "  bind_address", cfg.Server.BindAddress, defaultCfg.Server.BindAddress, yellow, green)
	dumpField(w, "  api_port", cfg.Server.APIPort, defaultCfg.Server.APIPort, yellow, green)
	dumpField(w, "  metrics_port", cfg.Server.MetricsPort, defaultCfg.Server.MetricsPort, yellow, green)

	_, _ = cyan.Fprintln(w, "\n[storage]")
	dumpField(w, "  type", cfg.Storage.Type, defaultCfg.Storage.Type, yellow, green)
	dumpField(w, "  path", cfg.Storage.Path, defaultCfg.Storage.Path, yellow, green)
	_, _ = cyan.Fprintln(w, "  [storage.redis]")
	dumpField(w, "    host", cfg.Storage.Redis.Host, defaultCfg.Storage.Redis.Host, yellow, green)
	dumpField(w, "    port", cfg.Storage.Redis.Port, defaultCfg.Storage.Redis.Port, yellow, green)
	dumpField(w, "    password", redact(cfg.Storage.Redis.Password), redact(defaultCfg.Storage.Redis.Password), yellow, green)
	dumpField(w, "    db", cfg.Storage.Redis.DB, defaultCfg.Storage.Redis.DB, yellow, green)
	dumpField(w, "    pool_size", cfg.Storage.Redis.PoolSize, defaultCfg.Storage.Redis.PoolSize, yellow, green)
	dumpField(w, "    min_idle_conns", cfg.Storage.Redis.MinIdleConns, defaultCfg.Storage.Redis.MinIdleConns, yellow, green)
	dumpField(w, "    dial_timeout", cfg.Storage.Redis.DialTimeout, defaultCfg.Storage.Redis.DialTimeout, yellow, green)
	dumpField(w, "    read_timeout", cfg.Storage.Redis.ReadTimeout, defaultCfg.Storage.Redis.ReadTimeout, yellow, green)
	dumpField(w, "    write_timeout", cfg.Storage.Redis.WriteTimeout, defaultCfg.Storage.Redis.WriteTimeout, yellow, green)

	_, _ = cyan.Fprintln(w, "\n[logging]")
	dumpField(w, "  level", cfg.Logging.Level, defaultCfg.Logging.Level, yellow, green)
	dumpField(w, "  format", cfg.Logging.Format, defaultCfg.Logging.Format, yellow, green)

	_, _ = cyan.Fprintln(w, "\n[identity]")
	dumpField(w, "  id", cfg.Identity.ID, defaultCfg.Identity.ID, yellow, green)

	_, _ = cyan.Fprintln(w, "\n[countdown]")
	dumpField(w, "  tick_interval", cfg.Countdown.TickInterval, defaultCfg.Countdown.TickInterval, yellow, green)
	dumpField(w, "  deadline_hour", cfg.Countdown.DeadlineHour, defaultCfg.Countdown.DeadlineHour, yellow, green)

	_, _ = cyan.Fprintln(w, "\n[generation]")
	dumpField(w, "  base_url", cfg.Generation.BaseURL, defaultCfg.Generation.BaseURL, yellow, green)
	dumpField(w, "  api_key", redact(cfg.Generation.APIKey), redact(defaultCfg.Generation.APIKey), yellow, green)
	dumpField(w, "  model", cfg.Generation.Model, defaultCfg.Generation.Model, yellow, green)
	dumpField(w, "  timeout", cfg.Generation.Timeout, defaultCfg.Generation.Timeout, yellow, green)
	dumpField(w, "  max_retries", cfg.Generation.MaxRetries, defaultCfg.Generation.MaxRetries, yellow, green)
	dumpField(w, "  initial_backoff", cfg.Generation.InitialBackoff, defaultCfg.Generation.InitialBackoff, yellow, green)
	dumpField(w, "  cache_size", cfg.Generation.CacheSize, defaultCfg.Generation.CacheSize, yellow, green)
	dumpField(w, "  cache_ttl", cfg.Generation.CacheTTL, defaultCfg.Generation.CacheTTL, yellow, green)
}

// dumpField prints a field with color if it differs from default
func dumpField(w io.Writer, name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	valueStr := fmt.Sprintf("%v", value)

	if reflect.DeepEqual(value, defaultValue) {
		_, _ = defaultColor.Fprintf(w, "%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Fprintf(w, "%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// redact hides secrets if not empty
func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "***REDACTED***"
}
