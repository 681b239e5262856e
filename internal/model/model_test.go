package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchSummary_Overall(t *testing.T) {
	tests := []struct {
		name    string
		summary BatchSummary
		want    Verdict
	}{
		{"all approved", BatchSummary{Total: 3, Succeeded: 3, Approved: 3}, VerdictApproved},
		{"one rejected wins", BatchSummary{Total: 3, Succeeded: 3, Approved: 1, Rejected: 1, OutOfScope: 1}, VerdictRejected},
		{"out of scope without rejection", BatchSummary{Total: 2, Succeeded: 2, Approved: 1, OutOfScope: 1}, VerdictInconclusive},
		{"ignored without rejection", BatchSummary{Total: 2, Succeeded: 2, Approved: 1, Ignored: 1}, VerdictInconclusive},
		{"empty batch", BatchSummary{}, VerdictApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.summary.Overall())
		})
	}
}

func TestManifest_JSONKeys(t *testing.T) {
	m := Manifest{
		Run: ManifestRun{
			Timestamp:    time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
			SourceFolder: "/src",
			HouseFolder:  "/house",
			TotalFiles:   1,
			SuccessCount: 1,
		},
		Config: ManifestConfig{AcceptedExtensions: []string{".pdf"}, UseHash: true},
		Files: []FileDescriptor{{
			OriginalName: "banner.pdf",
			SourcePath:   "/src/banner.pdf",
			Extension:    ".pdf",
			CopyStatus:   CopySuccess,
		}},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "execucao")
	assert.Contains(t, raw, "configuracao")
	assert.Contains(t, raw, "arquivos")
}

func TestNewFieldSet(t *testing.T) {
	fields := NewFieldSet([]string{"Ofertas", "RESULTADO"}, "Fora do Escopo")
	assert.Len(t, fields, 2)
	assert.Equal(t, "Fora do Escopo", fields["Ofertas"])
	assert.Equal(t, "Fora do Escopo", fields["RESULTADO"])
}

func TestRow_ValuesMatchColumns(t *testing.T) {
	var r Row
	assert.Len(t, r.Values(), len(RowColumns))
}
