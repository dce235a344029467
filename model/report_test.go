package model

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validReport() *Report {
	return &Report{
		PatientName:     "Jane Doe",
		PatientAge:      34,
		PatientGender:   "Female",
		ExaminationType: "Abdomen",
		ExaminationDate: "2024-03-07",
		Indication:      "RUQ pain",
		Findings:        "Normal liver.",
		Impression:      "Normal study.",
		RadiologistName: "Dr. Carter",
	}
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestValidateAcceptsCompleteReport(t *testing.T) {
	assert.NoError(t, validReport().Validate())
}

func TestValidateOptionalFieldsMayBeEmpty(t *testing.T) {
	r := validReport()
	r.Recommendations = ""
	r.ReferringPhysician = ""
	assert.NoError(t, r.Validate())
}

func TestValidateRequiredTextFields(t *testing.T) {
	r := validReport()
	r.PatientName = "   "
	r.Findings = ""

	fields := validationFields(t, r.Validate())
	assert.Contains(t, fields, "patient_name")
	assert.Contains(t, fields, "findings")
	assert.NotContains(t, fields, "impression")
}

func TestValidateAgeRange(t *testing.T) {
	r := validReport()
	r.PatientAge = 200
	fields := validationFields(t, r.Validate())
	assert.Equal(t, "must be between 0 and 150", fields["patient_age"])

	r.PatientAge = -1
	fields = validationFields(t, r.Validate())
	assert.Contains(t, fields, "patient_age")

	r.PatientAge = 0
	assert.NoError(t, r.Validate())
	r.PatientAge = 150
	assert.NoError(t, r.Validate())
}

func TestValidateEnums(t *testing.T) {
	r := validReport()
	r.PatientGender = "unknown"
	r.ExaminationType = "X-Ray"

	fields := validationFields(t, r.Validate())
	assert.Contains(t, fields, "patient_gender")
	assert.Contains(t, fields, "examination_type")
}

func TestValidateExaminationDate(t *testing.T) {
	r := validReport()
	r.ExaminationDate = "07/03/2024"
	fields := validationFields(t, r.Validate())
	assert.Contains(t, fields["examination_date"], "YYYY-MM-DD")

	r.ExaminationDate = ""
	fields = validationFields(t, r.Validate())
	assert.Equal(t, "is required", fields["examination_date"])
}

func TestValidateAttachmentAllOrNone(t *testing.T) {
	r := validReport()
	r.PDFFileName = "scan.pdf"

	fields := validationFields(t, r.Validate())
	assert.Contains(t, fields, "pdf_file")
}

func TestValidateAttachmentComplete(t *testing.T) {
	r := validReport()
	r.PDFFileName = "scan.pdf"
	r.PDFFileData = base64.StdEncoding.EncodeToString([]byte("%PDF-1.7"))
	r.PDFFileSize = 8

	assert.NoError(t, r.Validate())
	assert.True(t, r.HasAttachment())
}

func TestValidateAttachmentMustBePDF(t *testing.T) {
	r := validReport()
	r.PDFFileName = "scan.docx"
	r.PDFFileData = base64.StdEncoding.EncodeToString([]byte("data"))
	r.PDFFileSize = 4

	fields := validationFields(t, r.Validate())
	assert.Contains(t, fields, "pdf_file_name")
}

func TestValidateAttachmentSizeLimit(t *testing.T) {
	r := validReport()
	r.PDFFileName = "scan.pdf"
	r.PDFFileData = base64.StdEncoding.EncodeToString([]byte("data"))
	r.PDFFileSize = MaxAttachmentSize + 1

	fields := validationFields(t, r.Validate())
	assert.Contains(t, fields, "pdf_file_size")
}

func TestValidateAttachmentBadBase64(t *testing.T) {
	r := validReport()
	r.PDFFileName = "scan.pdf"
	r.PDFFileData = "not base64 !!!"
	r.PDFFileSize = 10

	fields := validationFields(t, r.Validate())
	assert.Contains(t, fields, "pdf_file_data")
}

func TestValidationErrorListsEveryField(t *testing.T) {
	r := &Report{}
	err := r.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "validation failed: "))
	for _, name := range []string{"patient_name", "indication", "findings", "impression", "radiologist_name", "examination_date"} {
		assert.Contains(t, msg, name)
	}
}

func TestHasAttachment(t *testing.T) {
	r := validReport()
	assert.False(t, r.HasAttachment())

	r.PDFFileSize = 1
	assert.True(t, r.HasAttachment())
}
