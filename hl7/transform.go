package hl7

import (
	"time"

	apperrors "github.com/davidkennedy02/csvtohl7/errors"
	"github.com/davidkennedy02/csvtohl7/logger"
	"github.com/davidkennedy02/csvtohl7/patient"
	"github.com/davidkennedy02/csvtohl7/pipeline"
	"github.com/davidkennedy02/csvtohl7/writer"
)

// Transformer converts raw records into ADT messages. It is stateless apart
// from its logger and safe for concurrent use by the worker pool.
type Transformer struct {
	eventType string
	log       *logger.Logger
	now       func() time.Time
}

// NewTransformer builds the standing-extract transformer, emitting ADT^A28
// messages.
func NewTransformer(log *logger.Logger) *Transformer {
	return &Transformer{
		eventType: "A28",
		log:       log.WithComponent("hl7"),
		now:       time.Now,
	}
}

// Transform implements pipeline.Transformer. Errors mean skip this record:
// too few fields, an exclusion rule, or a failed message build.
func (t *Transformer) Transform(rec pipeline.Record) (writer.Artifact, error) {
	if len(rec.Fields) < patient.FieldCount {
		return nil, apperrors.MalformedRecord(len(rec.Fields), patient.FieldCount)
	}

	now := t.now()
	p := patient.New(rec.Fields, t.log)
	if reason, level := p.ExclusionReason(now); reason != "" {
		return nil, apperrors.RecordExcluded(reason).
			WithDetail("level", level).
			WithDetail("patient", p.InternalPatientNumber)
	}

	msg, err := BuildADT(p, t.eventType, now)
	if err != nil {
		return nil, apperrors.MessageBuildFailed("ADT^"+t.eventType, err).
			WithDetail("patient", p.InternalPatientNumber)
	}
	return msg, nil
}
