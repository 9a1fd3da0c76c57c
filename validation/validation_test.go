package validation

import (
	"strings"
	"testing"

	"github.com/davidkennedy02/csvtohl7/errors"
)

type sampleConfig struct {
	BatchSize int    `mapstructure:"batch_size" validate:"required,min=1"`
	Format    string `mapstructure:"format" validate:"omitempty,oneof=csv pas"`
}

func TestStruct_Valid(t *testing.T) {
	cfg := sampleConfig{BatchSize: 1000, Format: "csv"}
	if err := Struct(cfg); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
}

func TestStruct_MissingRequired(t *testing.T) {
	cfg := sampleConfig{}
	err := Struct(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "batch_size") {
		t.Errorf("expected mapstructure field name in message, got %q", err.Error())
	}
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT code, got %v", errors.CodeOf(err))
	}
}

func TestStruct_OneOf(t *testing.T) {
	cfg := sampleConfig{BatchSize: 10, Format: "xml"}
	err := Struct(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("QueueCapacity"); got != "queue_capacity" {
		t.Errorf("got %q", got)
	}
	if got := toSnakeCase("Dir"); got != "dir" {
		t.Errorf("got %q", got)
	}
}
