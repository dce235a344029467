package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `Ultrasound Report
Patient Name: Jane Doe
Age: 34 Gender: Female
Exam Date: 3/7/24
Abdomen ultrasound examination.
Indication: Right upper quadrant pain
Findings: The liver is normal in size and echotexture.
No free fluid is seen.
Impression: Normal study.
Recommendations: Routine follow up in 6 months.
Referring Physician: Dr Alan Reed
Radiologist: Dr. Susan Carter
`

func TestExtractFieldsFullReport(t *testing.T) {
	fields := ExtractFields(sampleReport)

	expected := map[string]string{
		FieldPatientName:        "Jane Doe",
		FieldPatientAge:         "34",
		FieldPatientGender:      "Female",
		FieldExaminationType:    "Abdomen",
		FieldExaminationDate:    "2024-03-07",
		FieldIndication:         "Right upper quadrant pain",
		FieldFindings:           "The liver is normal in size and echotexture.\nNo free fluid is seen.",
		FieldImpression:         "Normal study.",
		FieldRecommendations:    "Routine follow up in 6 months.",
		FieldReferringPhysician: "Dr Alan Reed",
		FieldRadiologistName:    "Dr. Susan Carter",
	}

	for field, want := range expected {
		got, ok := fields[field]
		require.True(t, ok, "field %s should be extracted", field)
		assert.Equal(t, want, got, "field %s", field)
	}
	assert.Len(t, fields, len(expected))
}

func TestExtractFieldsEmptyText(t *testing.T) {
	fields := ExtractFields("")
	assert.Empty(t, fields)
}

func TestExtractFieldsUnrelatedText(t *testing.T) {
	fields := ExtractFields("lorem ipsum dolor sit amet\nnothing clinical here\n")
	assert.Empty(t, fields)
}

func TestExtractFieldsIndependentOfSurroundings(t *testing.T) {
	fields := ExtractFields("some preamble text 999\nAge: 41\ntrailing noise")
	assert.Equal(t, "41", fields[FieldPatientAge])
}

func TestExtractDateFormats(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"slash short year", "Date: 3/7/24", "2024-03-07"},
		{"dash full year", "Date: 03-07-2024", "2024-03-07"},
		{"single digit month and day", "Exam Date: 1/2/2023", "2023-01-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := ExtractFields(tt.text)
			assert.Equal(t, tt.want, fields[FieldExaminationDate])
		})
	}
}

func TestExtractDateMalformedTokenDropped(t *testing.T) {
	fields := ExtractFields("Date: 2024")
	_, ok := fields[FieldExaminationDate]
	assert.False(t, ok, "a bare year is not a date token")
}

func TestExtractExamTypePriorityOrderWins(t *testing.T) {
	// "renal" appears first in the text, but "cardiac" comes first in the
	// priority list, so cardiac wins.
	fields := ExtractFields("renal function discussed during cardiac ultrasound")
	assert.Equal(t, "Cardiac", fields[FieldExaminationType])
}

func TestExtractExamTypeAbsentWithoutKeyword(t *testing.T) {
	fields := ExtractFields("ultrasound of the wrist")
	_, ok := fields[FieldExaminationType]
	assert.False(t, ok)
}

func TestExtractGenderNormalization(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Gender: Male", "Male"},
		{"Gender: male", "Male"},
		{"Sex: M", "Male"},
		{"Gender: Female", "Female"},
		{"Sex: f", "Female"},
	}
	for _, tt := range tests {
		fields := ExtractFields(tt.text)
		assert.Equal(t, tt.want, fields[FieldPatientGender], "input %q", tt.text)
	}
}

func TestExtractFindingsStopsAtImpressionLine(t *testing.T) {
	text := "Findings: hepatic steatosis\nmild splenomegaly\nImpression: fatty liver\n"
	fields := ExtractFields(text)

	assert.Equal(t, "hepatic steatosis\nmild splenomegaly", fields[FieldFindings])
	assert.Equal(t, "fatty liver", fields[FieldImpression])
}

func TestExtractSectionStopsAtBlankLine(t *testing.T) {
	text := "Indication: abdominal pain\nfor two weeks\n\nunrelated footer text\n"
	fields := ExtractFields(text)
	assert.Equal(t, "abdominal pain\nfor two weeks", fields[FieldIndication])
}

func TestExtractPatientNameStopsBeforeLabelToken(t *testing.T) {
	fields := ExtractFields("Name: John Smith Age: 52\n")
	assert.Equal(t, "John Smith", fields[FieldPatientName])
	assert.Equal(t, "52", fields[FieldPatientAge])
}

func TestExtractPatientNameStopsBeforeDigit(t *testing.T) {
	fields := ExtractFields("Patient Name: Mary Jones 1980\n")
	assert.Equal(t, "Mary Jones", fields[FieldPatientName])
}

func TestExtractPatientNameNeedsTerminator(t *testing.T) {
	// The name run only ends at a newline, a digit or a label token; a name
	// dangling at the very end of the text never terminates and is dropped.
	fields := ExtractFields("Name: John Doe")
	_, ok := fields[FieldPatientName]
	assert.False(t, ok)
}

func TestExtractReferringPhysicianStopsAtRadiologistToken(t *testing.T) {
	fields := ExtractFields("Referring Physician: Dr Lee Radiologist: Dr Kim\n")
	assert.Equal(t, "Dr Lee", fields[FieldReferringPhysician])
	assert.Equal(t, "Dr Kim", fields[FieldRadiologistName])
}

func TestExtractReferringPhysicianBlockedByPunctuation(t *testing.T) {
	// A comma is outside the captured character set and no terminator was
	// reached first, so the occurrence yields nothing.
	fields := ExtractFields("Referred by: Dr Smith, MD")
	_, ok := fields[FieldReferringPhysician]
	assert.False(t, ok)
}

func TestExtractRadiologistAtEndOfText(t *testing.T) {
	fields := ExtractFields("Interpreted by: Dr. Ada Okafor")
	assert.Equal(t, "Dr. Ada Okafor", fields[FieldRadiologistName])
}

func TestExtractAgeCapsAtThreeDigits(t *testing.T) {
	fields := ExtractFields("Age: 102\n")
	assert.Equal(t, "102", fields[FieldPatientAge])
}

func TestExtractSameTextTwiceIsDeterministic(t *testing.T) {
	first := ExtractFields(sampleReport)
	second := ExtractFields(sampleReport)
	assert.Equal(t, first, second)
}
