package model

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxAttachmentSize is the upper bound for an inline PDF attachment.
const MaxAttachmentSize = 10 * 1024 * 1024 // 10 MiB

// Genders accepted for a report.
var Genders = []string{"Male", "Female", "Other"}

// ExaminationTypes lists the supported examination categories. "Other" is the
// open fallback for studies outside the fixed set.
var ExaminationTypes = []string{
	"Abdomen",
	"Pelvis",
	"Obstetric",
	"Thyroid",
	"Breast",
	"Musculoskeletal",
	"Vascular",
	"Cardiac",
	"Renal",
	"Other",
}

// Report is the persisted ultrasound examination report. Field names mirror
// the record store's column names. ID and timestamps are assigned by the
// store on creation; a report is never partially updated afterwards.
type Report struct {
	ID                 string    `json:"id,omitempty"`
	PatientName        string    `json:"patient_name"`
	PatientAge         int       `json:"patient_age"`
	PatientGender      string    `json:"patient_gender"`
	ExaminationType    string    `json:"examination_type"`
	ExaminationDate    string    `json:"examination_date"`
	Indication         string    `json:"indication"`
	Findings           string    `json:"findings"`
	Impression         string    `json:"impression"`
	Recommendations    string    `json:"recommendations,omitempty"`
	ReferringPhysician string    `json:"referring_physician,omitempty"`
	RadiologistName    string    `json:"radiologist_name"`
	PDFFileName        string    `json:"pdf_file_name,omitempty"`
	PDFFileData        string    `json:"pdf_file_data,omitempty"`
	PDFFileSize        int64     `json:"pdf_file_size,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasAttachment reports whether an inline PDF is attached.
func (r *Report) HasAttachment() bool {
	return r.PDFFileName != "" || r.PDFFileData != "" || r.PDFFileSize != 0
}

// ValidationError carries one message per rejected field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks the report against the invariants enforced before any
// store call. It returns a *ValidationError listing every violation, or nil.
func (r *Report) Validate() error {
	fields := make(map[string]string)

	requireText(fields, "patient_name", r.PatientName)
	requireText(fields, "indication", r.Indication)
	requireText(fields, "findings", r.Findings)
	requireText(fields, "impression", r.Impression)
	requireText(fields, "radiologist_name", r.RadiologistName)

	if r.PatientAge < 0 || r.PatientAge > 150 {
		fields["patient_age"] = "must be between 0 and 150"
	}

	if !contains(Genders, r.PatientGender) {
		fields["patient_gender"] = "must be one of Male, Female, Other"
	}
	if !contains(ExaminationTypes, r.ExaminationType) {
		fields["examination_type"] = "unknown examination type"
	}

	if strings.TrimSpace(r.ExaminationDate) == "" {
		fields["examination_date"] = "is required"
	} else if _, err := time.Parse("2006-01-02", r.ExaminationDate); err != nil {
		fields["examination_date"] = "must be a valid date in YYYY-MM-DD form"
	}

	r.validateAttachment(fields)

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// validateAttachment enforces that the attachment columns are either all
// present or all absent, and that the payload is a PDF within the size limit.
func (r *Report) validateAttachment(fields map[string]string) {
	if !r.HasAttachment() {
		return
	}

	if r.PDFFileName == "" || r.PDFFileData == "" || r.PDFFileSize == 0 {
		fields["pdf_file"] = "attachment requires file name, data and size together"
		return
	}
	if !strings.HasSuffix(strings.ToLower(r.PDFFileName), ".pdf") {
		fields["pdf_file_name"] = "attachment must be a PDF file"
	}
	if r.PDFFileSize < 0 || r.PDFFileSize > MaxAttachmentSize {
		fields["pdf_file_size"] = fmt.Sprintf("attachment exceeds the %d byte limit", MaxAttachmentSize)
	}
	if _, err := base64.StdEncoding.DecodeString(r.PDFFileData); err != nil {
		fields["pdf_file_data"] = "attachment payload is not valid base64"
	}
}

func requireText(fields map[string]string, name, value string) {
	if strings.TrimSpace(value) == "" {
		fields[name] = "is required"
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
