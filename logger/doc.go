// Package logger provides structured logging for the converter using zerolog.
//
// It supports JSON and console output formats, log level configuration, a
// daily log file target, and component-scoped loggers with structured fields.
// Pipeline components receive a *Logger at construction rather than reaching
// for a package-level singleton.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//	  output: "file"
//	  file: "logs/app.log"
//
// # Usage
//
//	log := logger.New(&cfg, "csvtohl7").WithComponent("writer")
//	log.Info().Str("partition", "1987").Msg("artifact persisted")
package logger
