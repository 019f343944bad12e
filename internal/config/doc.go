// Package config provides the configuration of imapcheck: defaults, flag
// validation, the optional YAML defaults file and XDG directories.
package config
