package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const configHeader = `# offchain-storage Configuration File
#
# Values can be overridden with environment variables using the OFFCHAIN_
# prefix, e.g. OFFCHAIN_LOGGING_LEVEL=DEBUG or OFFCHAIN_CONTENT_TYPE=s3.
#
# Only the section matching metadata.type and content.type is used; the
# other sections are kept as examples.

`

// InitConfig writes a sample configuration file to the default location.
//
// Parameters:
//   - force: Overwrite an existing file
//
// Returns the path of the written file.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

type section struct {
	key     string
	comment string
	value   any
}

// generateYAMLWithComments renders cfg as YAML with a comment above each
// top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	policy := map[string]any{
		"mode":           cfg.Policy.Mode,
		"default_access": cfg.Policy.DefaultAccess,
	}
	if cfg.Policy.CreateOnWrite != nil {
		policy["create_on_write"] = *cfg.Policy.CreateOnWrite
	}

	h := cfg.Adapters.HTTP
	sections := []section{
		{
			key:     "logging",
			comment: "Log level (DEBUG, INFO, WARN, ERROR), format (text, json) and output (stdout, stderr or a file path)",
			value:   cfg.Logging,
		},
		{
			key:     "server",
			comment: "Graceful shutdown timeout and the Prometheus metrics endpoint",
			value: map[string]any{
				"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
				"metrics":          cfg.Server.Metrics,
			},
		},
		{
			key: "policy",
			comment: "Access policy: strict requires write for write/delete and creates records on first write;\n" +
				"compat checks every operation against read and requires provisioning",
			value: policy,
		},
		{
			key:     "metadata",
			comment: "Metadata store: memory, badger or sqlite",
			value: map[string]any{
				"type":   cfg.Metadata.Type,
				"memory": cfg.Metadata.Memory,
				"badger": cfg.Metadata.Badger,
				"sqlite": cfg.Metadata.SQLite,
			},
		},
		{
			key:     "content",
			comment: "Content store: memory, filesystem, http, s3 or redis",
			value: map[string]any{
				"type":       cfg.Content.Type,
				"memory":     cfg.Content.Memory,
				"filesystem": cfg.Content.Filesystem,
				"http":       cfg.Content.HTTP,
				"s3":         cfg.Content.S3,
				"redis":      cfg.Content.Redis,
			},
		},
		{
			key:     "notifications",
			comment: "DataRetrieved notifications: log, queue or none",
			value:   cfg.Notifications,
		},
		{
			key:     "adapters",
			comment: "Protocol adapters. Callers are identified by the X-Caller-Identity header",
			value: map[string]any{
				"http": map[string]any{
					"enabled":          h.Enabled,
					"port":             h.Port,
					"read_timeout":     h.ReadTimeout.String(),
					"write_timeout":    h.WriteTimeout.String(),
					"idle_timeout":     h.IdleTimeout.String(),
					"shutdown_timeout": h.ShutdownTimeout.String(),
					"max_body_size":    h.MaxBodySize,
					"rate_limit": map[string]any{
						"requests_per_second": h.RateLimit.RequestsPerSecond,
						"burst":               h.RateLimit.Burst,
					},
				},
			},
		},
	}

	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range sections {
		var value yaml.Node
		if err := value.Encode(s.value); err != nil {
			return "", fmt.Errorf("failed to encode %s section: %w", s.key, err)
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: s.key, HeadComment: commentLines(s.comment)},
			&value,
		)
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}

	return buf.String(), nil
}

// commentLines prefixes every line of s with "# ".
func commentLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "# " + l
	}
	return strings.Join(lines, "\n")
}
