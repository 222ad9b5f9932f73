package importer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/rfmseg/internal/importer"
	"github.com/MrJamesThe3rd/rfmseg/internal/importer/csvfile"
)

const ordersCSV = "order_id,customer_id,order_date,total_amount\nO1,C1,2024-01-01,10.00\n"

func TestService_Import(t *testing.T) {
	type args struct {
		format importer.Format
		input  string
	}

	type testCase struct {
		name    string
		args    args
		wantLen int
		wantErr error
	}

	tests := []testCase{
		{
			name:    "Explicit Format",
			args:    args{format: importer.FormatOrders, input: ordersCSV},
			wantLen: 1,
		},
		{
			name:    "Empty Format Auto Detects",
			args:    args{format: "", input: ordersCSV},
			wantLen: 1,
		},
		{
			name:    "Wrong Explicit Format",
			args:    args{format: importer.FormatEcommerce, input: ordersCSV},
			wantErr: csvfile.ErrNoProfile,
		},
		{
			name:    "Unknown Format",
			args:    args{format: "xml", input: ordersCSV},
			wantErr: importer.ErrUnknownFormat,
		},
	}

	svc := importer.NewService()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Import(tt.args.format, strings.NewReader(tt.args.input))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestService_Formats(t *testing.T) {
	assert.Equal(t,
		[]importer.Format{importer.FormatAuto, importer.FormatEcommerce, importer.FormatOrders},
		importer.NewService().Formats(),
	)
}
