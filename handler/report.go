package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/waleedmj05-bit/ultrasound-xoxo/model"
	"github.com/waleedmj05-bit/ultrasound-xoxo/pkg/logger"
	"github.com/waleedmj05-bit/ultrasound-xoxo/service"
)

// ReportHandler serves the report CRUD endpoints and the PDF auto-fill
// extraction endpoint.
type ReportHandler struct {
	store       service.ReportStore
	textService *service.PDFTextService
	maxFileSize int64
}

func NewReportHandler(store service.ReportStore, textService *service.PDFTextService, maxFileSize int64) *ReportHandler {
	return &ReportHandler{
		store:       store,
		textService: textService,
		maxFileSize: maxFileSize,
	}
}

// Create validates a submitted report and persists it. Every validation
// problem is reported before the store is touched; a store failure leaves
// nothing half-written because create is a single call.
func (h *ReportHandler) Create(c *gin.Context) {
	var report model.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	// The store owns these.
	report.ID = ""
	report.CreatedAt = time.Time{}
	report.UpdatedAt = time.Time{}

	if err := report.Validate(); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Validation failed",
				"fields": verr.Fields,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.store.Create(c.Request.Context(), &report)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to create report", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create report. Please try again."})
		return
	}

	logger.Info(c.Request.Context(), "report created",
		"report_id", created.ID,
		"examination_type", created.ExaminationType,
	)
	c.JSON(http.StatusCreated, created)
}

// List returns all reports newest first. The inline attachment payload is
// stripped from list rows; only its name and size travel with the summary.
func (h *ReportHandler) List(c *gin.Context) {
	reports, err := h.store.List(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "failed to list reports", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load reports. Please try again."})
		return
	}

	rows := make([]gin.H, len(reports))
	for i := range reports {
		rows[i] = listRow(&reports[i])
	}
	c.JSON(http.StatusOK, gin.H{"reports": rows})
}

// Get returns the full report minus the raw attachment payload, which is
// only served through the attachment endpoint.
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.fetch(c)
	if err != nil {
		return
	}
	report.PDFFileData = ""
	c.JSON(http.StatusOK, gin.H{
		"report":         report,
		"has_attachment": report.HasAttachment(),
	})
}

// Delete removes a report permanently.
func (h *ReportHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		logger.Error(c.Request.Context(), "failed to delete report", "report_id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to delete report. Please try again."})
		return
	}

	logger.Info(c.Request.Context(), "report deleted", "report_id", id)
	c.JSON(http.StatusOK, gin.H{"message": "Report deleted"})
}

// Extract runs the heuristic field extractor over an uploaded PDF and
// returns the partial field map for the form to merge. Nothing is stored.
func (h *ReportHandler) Extract(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("File is too large: %d bytes (limit %d)", header.Size, h.maxFileSize),
		})
		return
	}
	if !looksLikePDF(header.Filename, header.Header.Get("Content-Type")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are supported"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	if int64(len(data)) > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("File is too large (limit %d bytes)", h.maxFileSize),
		})
		return
	}

	text, err := h.textService.Text(data)
	if err != nil {
		var xf *service.ExtractionFailure
		if errors.As(err, &xf) {
			logger.Warn(c.Request.Context(), "text extraction failed",
				"filename", header.Filename,
				"reason", xf.Reason,
			)
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Could not read the PDF. Please fill in the fields manually.",
			})
			return
		}
		logger.Error(c.Request.Context(), "unexpected extraction error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	fields := service.ExtractFields(text)
	logger.Info(c.Request.Context(), "fields extracted",
		"filename", header.Filename,
		"matched", len(fields),
	)
	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

// Attachment streams the stored PDF back under its original file name.
func (h *ReportHandler) Attachment(c *gin.Context) {
	report, err := h.fetch(c)
	if err != nil {
		return
	}
	if report.PDFFileData == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report has no attachment"})
		return
	}

	data, decodeErr := base64.StdEncoding.DecodeString(report.PDFFileData)
	if decodeErr != nil {
		logger.Error(c.Request.Context(), "corrupt attachment payload",
			"report_id", report.ID,
			"error", decodeErr,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Attachment payload is corrupt"})
		return
	}

	name := report.PDFFileName
	if name == "" {
		name = report.ID + ".pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(name)))
	c.Data(http.StatusOK, "application/pdf", data)
}

// fetch loads the report named by the :id param, writing the error response
// itself when the lookup fails.
func (h *ReportHandler) fetch(c *gin.Context) (*model.Report, error) {
	id := c.Param("id")
	report, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return nil, err
		}
		logger.Error(c.Request.Context(), "failed to load report", "report_id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load report. Please try again."})
		return nil, err
	}
	return report, nil
}

func listRow(r *model.Report) gin.H {
	return gin.H{
		"id":                  r.ID,
		"patient_name":        r.PatientName,
		"patient_age":         r.PatientAge,
		"patient_gender":      r.PatientGender,
		"examination_type":    r.ExaminationType,
		"examination_date":    r.ExaminationDate,
		"radiologist_name":    r.RadiologistName,
		"referring_physician": r.ReferringPhysician,
		"pdf_file_name":       r.PDFFileName,
		"pdf_file_size":       r.PDFFileSize,
		"has_attachment":      r.HasAttachment(),
		"created_at":          r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		"updated_at":          r.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// looksLikePDF accepts a declared PDF content type, or an octet-stream or
// empty declaration when the file name carries a .pdf extension.
func looksLikePDF(filename, contentType string) bool {
	if strings.Contains(contentType, "pdf") {
		return true
	}
	if contentType == "" || contentType == "application/octet-stream" {
		return strings.EqualFold(filepath.Ext(filename), ".pdf")
	}
	return false
}
