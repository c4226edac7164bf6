// Package config loads and watches the auditor configuration file (config.yaml).
//
// Top-level types:
//   - Config{Auditor}: full config tree parsed from YAML
//   - AuditorConfig: locale, locales_dir, log_level, http_port, cache_size,
//     auth, reports, metrics, log_source, archive
//   - LogSource: auth and tls options used when a network log is fetched
//     from an http(s) URL
//   - AuthConfig: mode (mtls|apikey|bearer|basic|none), cert/key/ca files,
//     header, key_env, token_env, password_env; Key(), Token() and
//     Password() resolve from environment variables
//   - ServerAuthConfig: REST API key check; EffectiveHeader() defaults to
//     x-api-key
//   - ArchiveConfig: optional PostgreSQL report archive (dsn_env, table)
//
// Load(path) reads the YAML file, applies defaults (en-US, info, port 8080,
// 128 cached analyses, 15m report TTL), then validates ranges and enums.
//
// Watch(ctx, path, onChange) watches the config file's directory and the
// configured locales_dir with fsnotify. Saves (including atomic renames) and
// *.yaml bundle changes are debounced, reloaded, validated and handed to
// onChange; invalid reloads are logged and dropped.
package config
