// Package file provides file-based configuration adapters.
// These adapters read from the local filesystem.
//
// Adapters:
//   - Settings loader: TOML config file, .env overlay and BOOKCHAT_* overrides
//   - PromptStore: User-editable prompt templates with hot reload
package file
