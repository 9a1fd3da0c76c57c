// Package config loads and validates converter configuration.
//
// Configuration comes from a YAML file (config.yml), an optional .env file,
// and CSVTOHL7_-prefixed environment variables, in increasing precedence.
// Every knob has a safe default; a config file is optional.
//
//	input:
//	  dir: input
//	output:
//	  dir: output_hl7
//	pipeline:
//	  batch_size: 1000
//	  workers: 0           # 0 = available parallelism minus one
//	  queue_capacity: 100
//	  large_file_threshold: 64MB
package config
