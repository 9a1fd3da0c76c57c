package patient

import (
	"strings"
	"time"

	"github.com/davidkennedy02/csvtohl7/logger"
	"github.com/davidkennedy02/csvtohl7/util"
)

// FieldCount is the minimum number of fields a raw record needs.
const FieldCount = 25

// Raw field positions within an extract record.
const (
	idxInternalPatientNumber = iota
	idxAssigningAuthority
	idxHospitalCaseNumber
	idxNHSNumber
	idxNHSVerificationStatus
	idxSurname
	idxForename
	idxDateOfBirth
	idxSex
	idxPatientTitle
	idxAddressLine1
	idxAddressLine2
	idxAddressLine3
	idxAddressLine4
	idxAddressLine5
	idxPostcode
	idxDeathIndicator
	idxDateOfDeath
	idxRegisteredGPCode
	idxEthnicCode
	idxHomePhone
	idxWorkPhone
	idxMobilePhone
	idxRegisteredGP
	idxRegisteredPractice
)

// dateLayout is the extract's date format.
const dateLayout = "20060102"

// Patient holds one normalized patient record. Empty string means absent.
type Patient struct {
	InternalPatientNumber string
	AssigningAuthority    string
	HospitalCaseNumber    string
	NHSNumber             string
	NHSVerificationStatus string
	Surname               string
	Forename              string
	DateOfBirth           string // YYYYMMDD, validated
	Sex                   string // M, F or U
	Title                 string
	Address               [5]string
	Postcode              string
	DeathIndicator        string // Y or N
	DateOfDeath           string // YYYYMMDD, validated
	RegisteredGPCode      string
	EthnicCode            string
	HomePhone             string
	WorkPhone             string // always blank per interface guidance
	MobilePhone           string
	RegisteredGP          string
	RegisteredPractice    string
}

// New normalizes a raw record into a Patient. fields must hold at least
// FieldCount entries; the caller checks that first. Data quality findings
// are logged against the internal patient number.
func New(fields []string, log *logger.Logger) *Patient {
	// Control characters inside a field would survive into segment text,
	// where a stray CR breaks the CR-delimited output.
	clean := make([]string, FieldCount)
	for i := range clean {
		clean[i] = util.SanitizeString(fields[i])
	}
	fields = clean

	p := &Patient{}
	p.InternalPatientNumber = util.Truncate(fields[idxInternalPatientNumber], 12)
	dq := &dataQuality{log: log, patient: p.InternalPatientNumber}

	// Hardcoded per interface guidance; the extract's value is ignored.
	p.AssigningAuthority = "RX1"
	p.HospitalCaseNumber = dq.hospitalCaseNumber(fields[idxHospitalCaseNumber])
	p.NHSNumber = dq.nhsNumber(fields[idxNHSNumber])
	p.NHSVerificationStatus = util.Truncate(fields[idxNHSVerificationStatus], 2)
	p.Surname = util.Truncate(fields[idxSurname], 30)
	p.Forename = util.Truncate(fields[idxForename], 20)
	p.DateOfBirth = dq.date(fields[idxDateOfBirth], "date of birth")
	p.Sex = mapSex(fields[idxSex])
	// TODO: title should come from the lookup domain (full description,
	// then 10-char, then 5-char abbreviation); truncated until the lookup
	// feed is available.
	p.Title = util.Truncate(fields[idxPatientTitle], 8)
	for i := 0; i < 5; i++ {
		p.Address[i] = formatAddressLine(fields[idxAddressLine1+i], 50)
	}
	if pc := util.Truncate(fields[idxPostcode], 10); pc != "" {
		p.Postcode = strings.ToUpper(pc)
	}
	p.DeathIndicator = parseDeathIndicator(fields[idxDeathIndicator])
	p.DateOfDeath = dq.date(fields[idxDateOfDeath], "date of death")
	p.RegisteredGPCode = util.Truncate(fields[idxRegisteredGPCode], 8)
	p.EthnicCode = util.Truncate(fields[idxEthnicCode], 2)
	p.HomePhone = validatePhone(fields[idxHomePhone])
	p.WorkPhone = ""
	p.MobilePhone = validatePhone(fields[idxMobilePhone])
	p.RegisteredGP = util.Truncate(fields[idxRegisteredGP], 50)
	p.RegisteredPractice = util.Truncate(fields[idxRegisteredPractice], 10)

	if p.DateOfDeath != "" {
		dq.checkDateOfDeath(p)
	}
	return p
}

// ExclusionReason returns a human-readable reason when the patient should
// not produce a message, and the log level it should be reported at. An
// empty reason means the patient is included.
func (p *Patient) ExclusionReason(now time.Time) (reason, level string) {
	switch {
	case p.Surname == "":
		return "missing required surname", "WARNING"
	case p.DateOfBirth != "" && p.DateOfDeath == "" && ageAt(p.DateOfBirth, now) > 112:
		return "no date of death and age > 112", "INFO"
	case p.DeathIndicator == "Y" && p.DateOfDeath != "" && ageAt(p.DateOfDeath, now) > 2:
		return "date of death more than 2 years ago", "INFO"
	}
	return "", ""
}

// ageAt returns full years elapsed since a YYYYMMDD date. Invalid dates
// never reach here; New drops them.
func ageAt(yyyymmdd string, now time.Time) int {
	d, err := time.Parse(dateLayout, yyyymmdd)
	if err != nil {
		return 0
	}
	years := now.Year() - d.Year()
	if now.Month() < d.Month() || (now.Month() == d.Month() && now.Day() < d.Day()) {
		years--
	}
	return years
}

// dataQuality collects the "notify Data Quality team" logging around one
// record's normalization.
type dataQuality struct {
	log     *logger.Logger
	patient string
}

func (dq *dataQuality) hospitalCaseNumber(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) > 25 {
		dq.log.Error("hospital case number over 25 chars - notify Data Quality team",
			logger.Fields(logger.FieldPatient, dq.patient))
	}
	return util.Truncate(value, 25)
}

func (dq *dataQuality) nhsNumber(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !util.IsDigits(value) {
		dq.log.Error("NHS number contains non-numeric characters - notify Data Quality team",
			logger.Fields(logger.FieldPatient, dq.patient))
	}
	if len(value) > 10 {
		dq.log.Error("NHS number over 10 chars - notify Data Quality team",
			logger.Fields(logger.FieldPatient, dq.patient))
	}
	return util.Truncate(value, 10)
}

// date validates a YYYYMMDD string. "NULL" and empty are absent; anything
// unparseable is logged and dropped.
func (dq *dataQuality) date(value, field string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == "NULL" {
		return ""
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		dq.log.Error("invalid "+field+" - notify Data Quality team",
			logger.Fields(logger.FieldPatient, dq.patient, "value", value))
		return ""
	}
	return value
}

func (dq *dataQuality) checkDateOfDeath(p *Patient) {
	if p.DateOfBirth != "" {
		dob, err1 := time.Parse(dateLayout, p.DateOfBirth)
		dod, err2 := time.Parse(dateLayout, p.DateOfDeath)
		if err1 == nil && err2 == nil && dod.Before(dob) {
			dq.log.Warn("date of death is earlier than date of birth",
				logger.Fields(logger.FieldPatient, dq.patient))
		}
	}
	if p.DeathIndicator == "N" {
		dq.log.Warn("death indicator is 'N' but a date of death has been recorded",
			logger.Fields(logger.FieldPatient, dq.patient))
	}
}

// mapSex maps extract codes onto HL7 administrative sex: 1/M/male to M,
// 2/F/female to F, anything else to U.
func mapSex(value string) string {
	switch value {
	case "1", "M", "male", "Male":
		return "M"
	case "2", "F", "female", "Female":
		return "F"
	}
	return "U"
}

// parseDeathIndicator coerces the extract value to Y or N: Y when any value
// is present, N otherwise.
func parseDeathIndicator(value string) string {
	if value == "N" || value == "" {
		return "N"
	}
	return "Y"
}

// formatAddressLine collapses runs of whitespace and caps the line. "NULL"
// placeholders become empty.
func formatAddressLine(value string, max int) string {
	if value == "NULL" {
		return ""
	}
	value = util.CollapseSpaces(value)
	if len(value) > max {
		value = value[:max]
	}
	return value
}

// validatePhone keeps digit-only values capped at 20; anything else is
// dropped.
func validatePhone(value string) string {
	value = strings.TrimSpace(value)
	if util.IsDigits(value) {
		return util.Truncate(value, 20)
	}
	return ""
}
