package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pemira/evote/internal/models"
)

var sampleRows = []models.ResultRow{
	{Name: "Budi Santoso", Vice: "Siti Rahma", TotalVotes: 42, Percent: 60.87},
	{Name: "Citra Dewi", Vice: "Eko Prasetyo", TotalVotes: 27, Percent: 39.13},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows))

	expected := strings.Join([]string{
		"name,vice,total_votes,percent",
		"Budi Santoso,Siti Rahma,42,60.87",
		"Citra Dewi,Eko Prasetyo,27,39.13",
	}, "\n") + "\n"

	assert.Equal(t, expected, buf.String())
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	assert.Equal(t, "name,vice,total_votes,percent\n", buf.String())
}

func TestWriteCSVQuotesCommas(t *testing.T) {
	var buf bytes.Buffer
	rows := []models.ResultRow{{Name: "Budi, S.Kom", Vice: "Siti", TotalVotes: 1, Percent: 100}}
	require.NoError(t, WriteCSV(&buf, rows))

	assert.Contains(t, buf.String(), `"Budi, S.Kom"`)
}

func TestWritePDF(t *testing.T) {
	stats := &models.AdminStats{TotalVoters: 100, TotalVotes: 69, TotalCandidates: 2, Participation: 69}
	rep := Report{
		Title:          "Hasil Pemilihan Raya",
		Organization:   "BEM Universitas Contoh",
		GeneratedAt:    time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC),
		Stats:          stats,
		SignatoryName:  "Ketua Panitia",
		SignatoryTitle: "Panitia Pemira",
	}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, rep, sampleRows))

	// a structurally valid PDF, not an empty shell
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "output is not a PDF")
	assert.Greater(t, buf.Len(), 1000)
}

func TestWritePDFNoStats(t *testing.T) {
	var buf bytes.Buffer
	rep := Report{Title: "Hasil", GeneratedAt: time.Now()}
	require.NoError(t, WritePDF(&buf, rep, nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
