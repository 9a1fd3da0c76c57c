package hl7

import (
	"time"

	apperrors "github.com/davidkennedy02/csvtohl7/errors"
	"github.com/davidkennedy02/csvtohl7/patient"
	"github.com/davidkennedy02/csvtohl7/util"
)

// Interface constants agreed with the receiving system.
const (
	sendingApplication   = "Sending Application"
	sendingFacility      = "Sending Facility"
	receivingApplication = "Receiving Application"
	receivingFacility    = "Receiving Facility"
	processingID         = "T"
	versionID            = "2.4"
	acceptAckType        = "AL"
	applicationAckType   = "NE"
)

// BuildADT builds an ADT message of the given event type (A28 for the
// standing extract, A01 for admissions) for one patient. now supplies the
// message and event timestamps.
func BuildADT(p *patient.Patient, eventType string, now time.Time) (*Message, error) {
	msg := &Message{dateOfBirth: p.DateOfBirth}

	msh, err := buildMSH(eventType, now)
	if err != nil {
		return nil, err
	}
	msg.Append(msh)
	msg.Append(buildEVN(eventType, now))
	msg.Append(buildPID(p))
	if eventType == "A01" {
		msg.Append(buildPV1())
	}
	return msg, nil
}

func buildMSH(eventType string, now time.Time) (*Segment, error) {
	if eventType == "" {
		return nil, apperrors.MessageBuildFailed("MSH", nil)
	}
	s := NewSegment("MSH")
	s.SetValue(3, sendingApplication)
	s.SetValue(4, sendingFacility)
	s.SetValue(5, receivingApplication)
	s.SetValue(6, receivingFacility)
	s.SetValue(7, now.Format("200601021504"))
	s.Set(9, Components("ADT", eventType))
	s.SetValue(10, controlID(now))
	s.SetValue(11, processingID)
	s.SetValue(12, versionID)
	s.SetValue(15, acceptAckType)
	s.SetValue(16, applicationAckType)
	return s, nil
}

func buildEVN(eventType string, now time.Time) *Segment {
	s := NewSegment("EVN")
	s.SetValue(1, eventType)
	s.SetValue(2, now.Format("200601021504"))
	return s
}

func buildPID(p *patient.Patient) *Segment {
	s := NewSegment("PID")
	s.SetValue(1, "1")
	if hasIdentifier(p) {
		// The hospital case number is the preferred PID-3 identifier; the
		// internal patient number stands in when it is missing.
		s.Set(3, Components(
			util.Coalesce(p.HospitalCaseNumber, p.InternalPatientNumber),
			p.NHSNumber,
			"",
			p.AssigningAuthority,
			p.NHSVerificationStatus,
			p.RegisteredGPCode,
			p.RegisteredGP,
			p.RegisteredPractice,
		))
	}
	if p.Surname != "" || p.Forename != "" || p.Title != "" {
		s.Set(5, Components(p.Surname, p.Forename, p.Title))
	}
	s.SetValue(7, p.DateOfBirth)
	s.SetValue(8, p.Sex)
	if hasAddress(p) {
		s.Set(11, Components(
			p.Address[0], p.Address[1], p.Address[2], p.Address[3], p.Address[4],
			p.Postcode,
		))
	}
	if p.HomePhone != "" || p.WorkPhone != "" || p.MobilePhone != "" {
		s.Set(13, Components(p.HomePhone, p.WorkPhone, p.MobilePhone))
	}
	s.SetValue(22, p.EthnicCode)
	s.SetValue(29, p.DateOfDeath)
	s.SetValue(30, p.DeathIndicator)
	return s
}

// buildPV1 emits the fixed visit segment admissions carry. Values are
// interface constants, not patient data.
func buildPV1() *Segment {
	s := NewSegment("PV1")
	s.SetValue(1, "1")
	s.SetValue(2, "O")
	s.SetValue(3, "Visit Institution")
	s.Set(7, Components("", "ACON"))
	s.Set(8, Components("", "ANAESTHETICS CONS", "", "", "", "", "", "L"))
	s.Set(9, Components("", "ANAESTHETICS CONS", "", "", "", "", "", "", "AUSHICPR"))
	return s
}

func hasIdentifier(p *patient.Patient) bool {
	return p.InternalPatientNumber != "" || p.HospitalCaseNumber != "" ||
		p.NHSNumber != "" || p.AssigningAuthority != "" ||
		p.NHSVerificationStatus != "" || p.RegisteredGPCode != "" ||
		p.RegisteredGP != "" || p.RegisteredPractice != ""
}

func hasAddress(p *patient.Patient) bool {
	for _, line := range p.Address {
		if line != "" {
			return true
		}
	}
	return p.Postcode != ""
}
