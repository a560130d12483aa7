package icalendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestParamMapAddAppends(t *testing.T) {
	var m ParamMap
	m.Add(MustName("MEMBER"), "mailto:a@example.com")
	m.Add(MustName("member"), "mailto:b@example.com", "mailto:c@example.com")
	m.Add(MustName("X-abc-flag"), "on")

	assert.Equal(t, 2, m.Len())
	v, ok := m.Get("Member")
	require.True(t, ok)
	assert.Equal(t, []string{"mailto:a@example.com", "mailto:b@example.com", "mailto:c@example.com"}, v.All())
	assert.Equal(t, 3, v.Len())
}

func TestParamMapKeepsKindsApart(t *testing.T) {
	var m ParamMap
	m.Add(MustName("FOO"), "registered")
	m.Add(MustName("X-FOO"), "extension")

	v, ok := m.TakeName("X-FOO")
	require.True(t, ok)
	assert.Equal(t, "extension", v.First)

	v, ok = m.TakeName("FOO")
	require.True(t, ok)
	assert.Equal(t, "registered", v.First)

	_, ok = m.TakeName("FOO")
	assert.False(t, ok, "take removes the entry")
}

func TestParamMapCheckNoRegistered(t *testing.T) {
	var m ParamMap
	m.Add(MustName("X-VENDOR"), "ok")
	assert.NoError(t, m.CheckNoRegistered())

	m.Add(MustName("LANGUAGE"), "en")
	assert.ErrorIs(t, m.CheckNoRegistered(), ErrInvalidParam)
}

func TestTakeParam(t *testing.T) {
	var m ParamMap

	role, ok, err := TakeParam(&m, ParamRole)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Role(""), role)

	role, err = TakeParamOrDefault(&m, ParamRole)
	require.NoError(t, err)
	assert.Equal(t, RoleRequired, role)

	m.Add(MustName("ROLE"), "chair")
	role, ok, err = TakeParam(&m, ParamRole)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, RoleChair, role)
	assert.Equal(t, 0, m.Len())
}

func TestTakeParamSingleValued(t *testing.T) {
	var m ParamMap
	m.Add(MustName("CN"), "one", "two")
	_, ok, err := TakeParam(&m, ParamCommonName)
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestTypedParams(t *testing.T) {
	line := func(t *testing.T, s string) *ParamMap {
		t.Helper()
		l, err := ParseLine(s)
		require.NoError(t, err)
		return &l.Params
	}

	t.Run("enumerations", func(t *testing.T) {
		m := line(t, "ATTENDEE;CUTYPE=room;PARTSTAT=X-WAITING;RSVP=TRUE;RELATED=end;RELTYPE=SIBLING:mailto:a@b.c")
		cu, err := TakeParamOrDefault(m, ParamCalendarUserType)
		require.NoError(t, err)
		assert.Equal(t, CUTypeRoom, cu)

		ps, err := TakeParamOrDefault(m, ParamParticipationStatus)
		require.NoError(t, err)
		assert.Equal(t, ParticipationStatus("X-WAITING"), ps)

		rsvp, err := TakeParamOrDefault(m, ParamRSVP)
		require.NoError(t, err)
		assert.True(t, rsvp)

		rel, err := TakeParamOrDefault(m, ParamRelated)
		require.NoError(t, err)
		assert.Equal(t, RelatedEnd, rel)

		rt, err := TakeParamOrDefault(m, ParamRelationshipType)
		require.NoError(t, err)
		assert.Equal(t, RelTypeSibling, rt)
	})

	t.Run("closed enumerations reject unknown values", func(t *testing.T) {
		m := line(t, "ATTACH;ENCODING=QUOTED-PRINTABLE;RANGE=THISANDPRIOR;RSVP=maybe:x")
		_, _, err := TakeParam(m, ParamEncoding)
		assert.ErrorIs(t, err, ErrInvalidParam)
		_, _, err = TakeParam(m, ParamRange)
		assert.ErrorIs(t, err, ErrInvalidParam)
		_, _, err = TakeParam(m, ParamRSVP)
		assert.ErrorIs(t, err, ErrInvalidParam)
	})

	t.Run("addresses", func(t *testing.T) {
		m := line(t, `ATTENDEE;DELEGATED-TO="mailto:a@example.com","mailto:b@example.com";SENT-BY="mailto:s@example.com":mailto:x@example.com`)
		to, err := TakeParamOrDefault(m, ParamDelegatedTo)
		require.NoError(t, err)
		assert.Equal(t, []CalAddress{"mailto:a@example.com", "mailto:b@example.com"}, to)

		by, err := TakeParamOrDefault(m, ParamSentBy)
		require.NoError(t, err)
		assert.Equal(t, CalAddress("mailto:s@example.com"), by)

		m = line(t, `ATTENDEE;MEMBER="not a uri":mailto:x@example.com`)
		_, _, err = TakeParam(m, ParamMember)
		assert.ErrorIs(t, err, ErrInvalidParam)
	})

	t.Run("language", func(t *testing.T) {
		m := line(t, "SUMMARY;LANGUAGE=de-CH:Hallo")
		tag, err := TakeParamOrDefault(m, ParamLanguage)
		require.NoError(t, err)
		assert.Equal(t, language.MustParse("de-CH"), tag)

		m = line(t, "SUMMARY;LANGUAGE=not_a_tag!:x")
		_, _, err = TakeParam(m, ParamLanguage)
		assert.ErrorIs(t, err, ErrInvalidParam)
	})

	t.Run("tzid", func(t *testing.T) {
		m := line(t, "DTSTART;TZID=/example.org/Europe/Berlin:20240101T100000")
		tz, err := TakeParamOrDefault(m, ParamTZID)
		require.NoError(t, err)
		assert.Equal(t, TZID{Global: true, ID: "example.org/Europe/Berlin"}, tz)
		assert.Equal(t, "/example.org/Europe/Berlin", tz.String())

		m = line(t, "DTSTART;TZID=/:20240101T100000")
		_, _, err = TakeParam(m, ParamTZID)
		assert.ErrorIs(t, err, ErrInvalidParam)
	})

	t.Run("format type", func(t *testing.T) {
		m := line(t, "ATTACH;FMTTYPE=text/plain:https://example.com/a.txt")
		ft, err := TakeParamOrDefault(m, ParamFormatType)
		require.NoError(t, err)
		assert.Equal(t, "text/plain", ft)

		m = line(t, "ATTACH;FMTTYPE=plain:https://example.com/a.txt")
		_, _, err = TakeParam(m, ParamFormatType)
		assert.ErrorIs(t, err, ErrInvalidParam)
	})

	t.Run("value type", func(t *testing.T) {
		m := line(t, "DTSTART;VALUE=date:20240101")
		vt, err := TakeParamOrDefault(m, ParamValue)
		require.NoError(t, err)
		assert.Equal(t, ValueDate, vt)
	})
}
