package importer

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/MrJamesThe3rd/rfmseg/internal/importer/csvfile"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

var ErrUnknownFormat = errors.New("unknown format")

type Service struct {
	importers map[Format]Importer
}

func NewService() *Service {
	return &Service{
		importers: map[Format]Importer{
			FormatAuto:      csvfile.NewParser(csvfile.Ecommerce, csvfile.Orders),
			FormatEcommerce: csvfile.NewParser(csvfile.Ecommerce),
			FormatOrders:    csvfile.NewParser(csvfile.Orders),
		},
	}
}

// Import parses r with the importer registered for format. An empty format means auto-detection.
func (s *Service) Import(format Format, r io.Reader) ([]transaction.CreateParams, error) {
	if format == "" {
		format = FormatAuto
	}

	importer, ok := s.importers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	return importer.Parse(r)
}

// Formats lists the registered formats in name order.
func (s *Service) Formats() []Format {
	formats := make([]Format, 0, len(s.importers))
	for f := range s.importers {
		formats = append(formats, f)
	}

	slices.Sort(formats)

	return formats
}
