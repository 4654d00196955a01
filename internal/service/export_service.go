package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bclabs/school-portal-api/pkg/errors"
	"github.com/bclabs/school-portal-api/pkg/export"
)

// Export formats accepted by the gateway.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type entityLister interface {
	List(ctx context.Context, entity string) (interface{}, error)
}

// ExportService renders a registered collection as a downloadable document.
type ExportService struct {
	entities entityLister
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
}

// NewExportService constructs an ExportService.
func NewExportService(entities entityLister) *ExportService {
	return &ExportService{
		entities: entities,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
	}
}

// ExportResult carries the rendered bytes and download metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Export renders the named collection in the requested format.
func (s *ExportService) Export(ctx context.Context, entity, format string) (*ExportResult, error) {
	if format != FormatCSV && format != FormatPDF {
		return nil, errors.Clone(errors.ErrValidation, "format must be csv or pdf")
	}

	payload, err := s.entities.List(ctx, entity)
	if err != nil {
		return nil, err
	}

	dataset, err := toDataset(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, errors.ErrInternal.Status, "failed to build export dataset")
	}

	switch format {
	case FormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal.Code, errors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: entity + ".csv"}, nil
	default:
		content, err := s.pdf.Render(dataset, entity)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal.Code, errors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: entity + ".pdf"}, nil
	}
}

// toDataset flattens any list payload into tabular form. Headers are the
// sorted union of keys across rows.
func toDataset(payload interface{}) (export.Dataset, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return export.Dataset{}, fmt.Errorf("marshal export payload: %w", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return export.Dataset{}, fmt.Errorf("decode export payload: %w", err)
	}

	headerSet := make(map[string]struct{})
	for _, row := range rows {
		for key := range row {
			headerSet[key] = struct{}{}
		}
	}
	headers := make([]string, 0, len(headerSet))
	for key := range headerSet {
		headers = append(headers, key)
	}
	sort.Strings(headers)
	if len(headers) == 0 {
		headers = []string{"id"}
	}

	dataset := export.Dataset{Headers: headers}
	for _, row := range rows {
		record := make(map[string]string, len(row))
		for key, value := range row {
			switch v := value.(type) {
			case nil:
				record[key] = ""
			case string:
				record[key] = v
			default:
				encoded, _ := json.Marshal(v)
				record[key] = string(encoded)
			}
		}
		dataset.Rows = append(dataset.Rows, record)
	}

	return dataset, nil
}
