// Package logging builds the structured loggers used across songbot.
//
// Loggers are created once by the entry point and passed to each component
// explicitly; nothing in songbot logs through a package-level logger.
package logging
