// Package config loads, normalizes, and validates nnetctl configuration data.
//
// It supplies the training defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the NNETCTL_CMD environment
// fallback for the job launcher script. The Config type centralizes every
// knob the controller and CLI need: experiment and egs directories, the job
// ramp and learning-rate schedule, selection and shrinkage thresholds, prior
// smoothing, retention, launcher settings, and the external command
// templates.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, validated size strings, and clear validation errors.
package config
