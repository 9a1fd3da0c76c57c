// Package validation provides struct tag validation for configuration.
//
// Config structs carry `validate` tags (via the validator library); a failed
// validation aborts the run before any worker starts.
//
//	type Pipeline struct {
//	    BatchSize int `validate:"required,min=1"`
//	}
//	err := validation.Struct(cfg)
package validation
