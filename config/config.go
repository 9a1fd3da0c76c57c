package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/davidkennedy02/csvtohl7/logger"
	"github.com/davidkennedy02/csvtohl7/util"
	"github.com/davidkennedy02/csvtohl7/validation"
)

// Config is the root configuration for the converter.
type Config struct {
	Name          string        `yaml:"name" mapstructure:"name"`
	Environment   string        `yaml:"environment" mapstructure:"environment"`
	Logging       logger.Config `yaml:"logging" mapstructure:"logging"`
	Input         Input         `yaml:"input" mapstructure:"input"`
	Output        Output        `yaml:"output" mapstructure:"output"`
	Pipeline      Pipeline      `yaml:"pipeline" mapstructure:"pipeline"`
	Writer        Writer        `yaml:"writer" mapstructure:"writer"`
	Observability Observability `yaml:"observability" mapstructure:"observability"`
}

// Input configures where source files are read from.
type Input struct {
	Dir string `yaml:"dir" mapstructure:"dir" validate:"required"`
}

// Output configures where HL7 artifacts are written.
type Output struct {
	Dir       string `yaml:"dir" mapstructure:"dir" validate:"required"`
	Extension string `yaml:"extension" mapstructure:"extension"`
}

// Pipeline configures the chunked parallel batch pipeline.
type Pipeline struct {
	// BatchSize is the maximum number of records per batch.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size" validate:"min=1"`
	// Workers is the consumer pool size. Zero selects available
	// parallelism minus one, with a floor of one.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"min=0"`
	// QueueCapacity bounds the work queue; producers block when full.
	QueueCapacity int `yaml:"queue_capacity" mapstructure:"queue_capacity" validate:"min=1"`
	// LargeFileThreshold selects the chunked strategy for files above it.
	LargeFileThreshold string `yaml:"large_file_threshold" mapstructure:"large_file_threshold"`
	// MinLinesPerChunk floors the chunk size when planning large files.
	MinLinesPerChunk int `yaml:"min_lines_per_chunk" mapstructure:"min_lines_per_chunk" validate:"min=1"`
	// DrainTimeout bounds the wait for workers after the queue closes.
	DrainTimeout time.Duration `yaml:"drain_timeout" mapstructure:"drain_timeout"`
}

// Writer configures artifact persistence.
type Writer struct {
	// RetryAttempts caps attempts for a transiently failing write.
	RetryAttempts int `yaml:"retry_attempts" mapstructure:"retry_attempts" validate:"min=1"`
	// RetryBaseDelay is the initial backoff, doubling per attempt.
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" mapstructure:"retry_base_delay"`
}

// Observability configures optional OTLP metrics export.
type Observability struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults applies default values to the full configuration.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "csvtohl7"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Logging.ApplyDefaults()

	if c.Input.Dir == "" {
		c.Input.Dir = "input"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output_hl7"
	}
	if c.Output.Extension == "" {
		c.Output.Extension = ".hl7"
	}

	if c.Pipeline.BatchSize == 0 {
		c.Pipeline.BatchSize = 1000
	}
	if c.Pipeline.QueueCapacity == 0 {
		c.Pipeline.QueueCapacity = 100
	}
	if c.Pipeline.LargeFileThreshold == "" {
		c.Pipeline.LargeFileThreshold = "64MB"
	}
	if c.Pipeline.MinLinesPerChunk == 0 {
		c.Pipeline.MinLinesPerChunk = 100
	}
	if c.Pipeline.DrainTimeout == 0 {
		c.Pipeline.DrainTimeout = 60 * time.Second
	}

	if c.Writer.RetryAttempts == 0 {
		c.Writer.RetryAttempts = 5
	}
	if c.Writer.RetryBaseDelay == 0 {
		c.Writer.RetryBaseDelay = 500 * time.Millisecond
	}

	if c.Observability.Endpoint == "" {
		c.Observability.Endpoint = "localhost:4318"
		c.Observability.Insecure = true
	}
	if c.Observability.Interval == 0 {
		c.Observability.Interval = 15 * time.Second
	}
}

// Validate validates the full configuration.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, v := range validEnvs {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := validation.Struct(c.Input); err != nil {
		return fmt.Errorf("config.input: %w", err)
	}
	if err := validation.Struct(c.Output); err != nil {
		return fmt.Errorf("config.output: %w", err)
	}
	if err := validation.Struct(c.Pipeline); err != nil {
		return fmt.Errorf("config.pipeline: %w", err)
	}
	if err := validation.Struct(c.Writer); err != nil {
		return fmt.Errorf("config.writer: %w", err)
	}
	return nil
}

// EffectiveWorkers resolves the worker count: the configured value, or
// available parallelism minus one (reserving a core for the orchestrator),
// never less than one.
func (c *Pipeline) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// ThresholdBytes parses the large-file threshold into bytes.
func (c *Pipeline) ThresholdBytes() int64 {
	return util.ParseSize(c.LargeFileThreshold, 64*1024*1024)
}
