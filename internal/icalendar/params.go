package icalendar

import (
	"fmt"
	"mime"
	"strings"

	"golang.org/x/text/language"
)

// Open enumerations keep unregistered values that are valid names.

type CalendarUserType string

const (
	CUTypeIndividual CalendarUserType = "INDIVIDUAL"
	CUTypeGroup      CalendarUserType = "GROUP"
	CUTypeResource   CalendarUserType = "RESOURCE"
	CUTypeRoom       CalendarUserType = "ROOM"
	CUTypeUnknown    CalendarUserType = "UNKNOWN"
)

type Encoding string

const (
	Encoding8Bit   Encoding = "8BIT"
	EncodingBase64 Encoding = "BASE64"
)

type FreeBusyType string

const (
	FBTypeFree            FreeBusyType = "FREE"
	FBTypeBusy            FreeBusyType = "BUSY"
	FBTypeBusyUnavailable FreeBusyType = "BUSY-UNAVAILABLE"
	FBTypeBusyTentative   FreeBusyType = "BUSY-TENTATIVE"
)

type ParticipationStatus string

const (
	PartStatNeedsAction ParticipationStatus = "NEEDS-ACTION"
	PartStatAccepted    ParticipationStatus = "ACCEPTED"
	PartStatDeclined    ParticipationStatus = "DECLINED"
	PartStatTentative   ParticipationStatus = "TENTATIVE"
	PartStatDelegated   ParticipationStatus = "DELEGATED"
	PartStatCompleted   ParticipationStatus = "COMPLETED"
	PartStatInProcess   ParticipationStatus = "IN-PROCESS"
)

type Range string

const RangeThisAndFuture Range = "THISANDFUTURE"

type Related string

const (
	RelatedStart Related = "START"
	RelatedEnd   Related = "END"
)

type RelationshipType string

const (
	RelTypeParent  RelationshipType = "PARENT"
	RelTypeChild   RelationshipType = "CHILD"
	RelTypeSibling RelationshipType = "SIBLING"
)

type Role string

const (
	RoleChair          Role = "CHAIR"
	RoleRequired       Role = "REQ-PARTICIPANT"
	RoleOptional       Role = "OPT-PARTICIPANT"
	RoleNonParticipant Role = "NON-PARTICIPANT"
)

type ValueType string

const (
	ValueBinary     ValueType = "BINARY"
	ValueBoolean    ValueType = "BOOLEAN"
	ValueCalAddress ValueType = "CAL-ADDRESS"
	ValueDate       ValueType = "DATE"
	ValueDateTime   ValueType = "DATE-TIME"
	ValueDuration   ValueType = "DURATION"
	ValueFloat      ValueType = "FLOAT"
	ValueInteger    ValueType = "INTEGER"
	ValuePeriod     ValueType = "PERIOD"
	ValueRecur      ValueType = "RECUR"
	ValueText       ValueType = "TEXT"
	ValueTime       ValueType = "TIME"
	ValueURI        ValueType = "URI"
	ValueUTCOffset  ValueType = "UTC-OFFSET"
)

// TZID is a time zone identifier. Global marks the "/" prefix of a
// globally unique id. It is only checked for syntax.
type TZID struct {
	Global bool
	ID     string
}

func (t TZID) String() string {
	if t.Global {
		return "/" + t.ID
	}
	return t.ID
}

// IsZero reports whether no TZID was given.
func (t TZID) IsZero() bool { return t.ID == "" }

var (
	ParamAltRep = ParamType[URI]{Name: "ALTREP", Parse: singleURI}

	ParamCommonName = ParamType[string]{Name: "CN", Parse: Values.Single}

	ParamCalendarUserType = enumParam("CUTYPE", CUTypeIndividual, true,
		CUTypeIndividual, CUTypeGroup, CUTypeResource, CUTypeRoom, CUTypeUnknown)

	ParamDelegatedFrom = ParamType[[]CalAddress]{Name: "DELEGATED-FROM", Parse: calAddressList}
	ParamDelegatedTo   = ParamType[[]CalAddress]{Name: "DELEGATED-TO", Parse: calAddressList}

	ParamDir = ParamType[URI]{Name: "DIR", Parse: singleURI}

	ParamEncoding = enumParam("ENCODING", Encoding8Bit, false, Encoding8Bit, EncodingBase64)

	ParamFormatType = ParamType[string]{Name: "FMTTYPE", Parse: formatType}

	ParamFreeBusyType = enumParam("FBTYPE", FBTypeBusy, true,
		FBTypeFree, FBTypeBusy, FBTypeBusyUnavailable, FBTypeBusyTentative)

	ParamLanguage = ParamType[language.Tag]{Name: "LANGUAGE", Parse: languageTag}

	ParamMember = ParamType[[]CalAddress]{Name: "MEMBER", Parse: calAddressList}

	ParamParticipationStatus = enumParam("PARTSTAT", PartStatNeedsAction, true,
		PartStatNeedsAction, PartStatAccepted, PartStatDeclined, PartStatTentative,
		PartStatDelegated, PartStatCompleted, PartStatInProcess)

	ParamRange = enumParam("RANGE", Range(""), false, RangeThisAndFuture)

	ParamRelated = enumParam("RELATED", RelatedStart, false, RelatedStart, RelatedEnd)

	ParamRelationshipType = enumParam("RELTYPE", RelTypeParent, true,
		RelTypeParent, RelTypeChild, RelTypeSibling)

	ParamRole = enumParam("ROLE", RoleRequired, true,
		RoleChair, RoleRequired, RoleOptional, RoleNonParticipant)

	ParamRSVP = ParamType[bool]{Name: "RSVP", Parse: func(v Values) (bool, error) {
		s, err := v.Single()
		if err != nil {
			return false, err
		}
		b, err := ParseBoolean(s)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
		return b, nil
	}}

	ParamSentBy = ParamType[CalAddress]{Name: "SENT-BY", Parse: func(v Values) (CalAddress, error) {
		s, err := v.Single()
		if err != nil {
			return "", err
		}
		a, err := ParseCalAddress(s)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
		return a, nil
	}}

	ParamTZID = ParamType[TZID]{Name: "TZID", Parse: parseTZID}

	ParamValue = enumParam("VALUE", ValueType(""), true,
		ValueBinary, ValueBoolean, ValueCalAddress, ValueDate, ValueDateTime,
		ValueDuration, ValueFloat, ValueInteger, ValuePeriod, ValueRecur,
		ValueText, ValueTime, ValueURI, ValueUTCOffset)
)

// enumParam builds a single-valued enumeration. Registered tokens match
// case-insensitively and come back in canonical form; other valid names are
// accepted as written when open is set.
func enumParam[T ~string](name string, def T, open bool, known ...T) ParamType[T] {
	return ParamType[T]{
		Name:    name,
		Default: def,
		Parse: func(v Values) (T, error) {
			s, err := v.Single()
			if err != nil {
				return "", err
			}
			for _, k := range known {
				if strings.EqualFold(s, string(k)) {
					return k, nil
				}
			}
			if open {
				if _, err := ParseName(s); err == nil {
					return T(s), nil
				}
			}
			return "", fmt.Errorf("%w: unknown %s %q", ErrInvalidParam, name, s)
		},
	}
}

func singleURI(v Values) (URI, error) {
	s, err := v.Single()
	if err != nil {
		return "", err
	}
	u, err := ParseURI(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}
	return u, nil
}

func calAddressList(v Values) ([]CalAddress, error) {
	all := v.All()
	out := make([]CalAddress, len(all))
	for i, s := range all {
		a, err := ParseCalAddress(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
		out[i] = a
	}
	return out, nil
}

func formatType(v Values) (string, error) {
	s, err := v.Single()
	if err != nil {
		return "", err
	}
	mt, _, err := mime.ParseMediaType(s)
	if err != nil || !strings.Contains(mt, "/") {
		return "", fmt.Errorf("%w: bad media type %q", ErrInvalidParam, s)
	}
	return s, nil
}

func languageTag(v Values) (language.Tag, error) {
	s, err := v.Single()
	if err != nil {
		return language.Und, err
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("%w: language %q: %v", ErrInvalidParam, s, err)
	}
	return tag, nil
}

func parseTZID(v Values) (TZID, error) {
	s, err := v.Single()
	if err != nil {
		return TZID{}, err
	}
	var t TZID
	if strings.HasPrefix(s, "/") {
		t.Global = true
		s = s[1:]
	}
	if s == "" {
		return TZID{}, fmt.Errorf("%w: empty TZID", ErrInvalidParam)
	}
	t.ID = s
	return t, nil
}
