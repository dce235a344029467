package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/waleedmj05-bit/ultrasound-xoxo/config"
	"github.com/waleedmj05-bit/ultrasound-xoxo/model"
)

// SupabaseStore talks to a hosted Postgres through the PostgREST query API.
// Every report operation is a single HTTP call; per-call atomicity is all
// the store guarantees and all this system needs.
type SupabaseStore struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// reportInsert is the insert payload: everything except the columns the
// store assigns (id, created_at, updated_at).
type reportInsert struct {
	PatientName        string `json:"patient_name"`
	PatientAge         int    `json:"patient_age"`
	PatientGender      string `json:"patient_gender"`
	ExaminationType    string `json:"examination_type"`
	ExaminationDate    string `json:"examination_date"`
	Indication         string `json:"indication"`
	Findings           string `json:"findings"`
	Impression         string `json:"impression"`
	Recommendations    string `json:"recommendations"`
	ReferringPhysician string `json:"referring_physician"`
	RadiologistName    string `json:"radiologist_name"`
	PDFFileName        string `json:"pdf_file_name,omitempty"`
	PDFFileData        string `json:"pdf_file_data,omitempty"`
	PDFFileSize        int64  `json:"pdf_file_size,omitempty"`
}

// NewSupabaseStore creates a store client for the configured project.
func NewSupabaseStore(cfg *config.StoreConfig) *SupabaseStore {
	base := strings.TrimRight(cfg.URL, "/")
	return &SupabaseStore{
		endpoint: fmt.Sprintf("%s/rest/v1/%s", base, cfg.Table),
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *SupabaseStore) Create(ctx context.Context, report *model.Report) (*model.Report, error) {
	payload := reportInsert{
		PatientName:        report.PatientName,
		PatientAge:         report.PatientAge,
		PatientGender:      report.PatientGender,
		ExaminationType:    report.ExaminationType,
		ExaminationDate:    report.ExaminationDate,
		Indication:         report.Indication,
		Findings:           report.Findings,
		Impression:         report.Impression,
		Recommendations:    report.Recommendations,
		ReferringPhysician: report.ReferringPhysician,
		RadiologistName:    report.RadiologistName,
		PDFFileName:        report.PDFFileName,
		PDFFileData:        report.PDFFileData,
		PDFFileSize:        report.PDFFileSize,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &StoreError{Op: "create", Err: fmt.Errorf("failed to marshal report: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &StoreError{Op: "create", Err: err}
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	rows, err := s.doRows(req, "create")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &StoreError{Op: "create", Err: fmt.Errorf("store returned no row for inserted report")}
	}
	return &rows[0], nil
}

// List fetches all reports ordered by creation time, newest first. The
// ordering is done by the store, not the client.
func (s *SupabaseStore) List(ctx context.Context) ([]model.Report, error) {
	listURL := s.endpoint + "?select=*&order=created_at.desc"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	s.setHeaders(req)

	rows, err := s.doRows(req, "list")
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SupabaseStore) Get(ctx context.Context, id string) (*model.Report, error) {
	getURL := s.endpoint + "?select=*&id=eq." + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getURL, nil)
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	s.setHeaders(req)

	rows, err := s.doRows(req, "get")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrReportNotFound
	}
	return &rows[0], nil
}

// Delete removes the report with the given id. The representation header
// makes PostgREST echo the deleted rows, which is how a miss is detected.
func (s *SupabaseStore) Delete(ctx context.Context, id string) error {
	deleteURL := s.endpoint + "?id=eq." + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	s.setHeaders(req)
	req.Header.Set("Prefer", "return=representation")

	rows, err := s.doRows(req, "delete")
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (s *SupabaseStore) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
}

// doRows executes the request and decodes the row array PostgREST returns
// for every representation-bearing call.
func (s *SupabaseStore) doRows(req *http.Request, op string) ([]model.Report, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &StoreError{Op: op, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &StoreError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StoreError{Op: op, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var rows []model.Report
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &StoreError{Op: op, Err: fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))}
	}
	return rows, nil
}
