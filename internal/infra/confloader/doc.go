// Package confloader layers kvault-server configuration with koanf.
//
// Loader.Load applies, lowest priority first:
//
//  1. Defaults, serialized through their yaml tags
//  2. The YAML file given by WithConfigFile
//  3. Environment variables (KVAULT_ prefix)
//  4. Command-line flags as dotted keys
//
// Environment names map onto known keys by replacing dots with
// underscores, so KVAULT_VAULT_KEY_SIZE sets vault.key_size. Unknown
// names fall back to treating every underscore as a separator.
//
// Watcher reports debounced changes to watched files so the server can
// reload the settings that are safe to change at runtime.
package confloader
