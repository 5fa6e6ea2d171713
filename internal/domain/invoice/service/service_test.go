package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ovhbill/pkg/config"
	"github.com/FACorreiaa/ovhbill/pkg/storage"
)

// documentLines builds the raw line stream of a minimal one-item invoice.
func documentLines(reference, total string) []string {
	return []string{
		"Référence de la facture : " + reference,
		"Date d'émission : 15/06/2024",
		"Total de la facture HT " + total + " €",
		"Rubrique Serveurs",
		"Abonnement Référence Quantité Prix unitaire",
		"Prix HT",
		"VPS 2023 vps-le-2-4-80 1 4,20 € 4,20 €",
	}
}

func newTestService(t *testing.T, docs map[string][]string, logBuf *bytes.Buffer) (*Service, string) {
	t.Helper()

	inDir := t.TempDir()
	outDir := t.TempDir()
	for name := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(inDir, name), []byte("%PDF-1.4"), 0644))
	}

	cfg := &config.Config{
		InputDir:  inDir,
		OutputDir: outDir,
		Tolerance: decimal.RequireFromString(config.DefaultTolerance),
	}
	store, err := storage.NewLocal(outDir)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(logBuf, nil))
	svc := New(cfg, store, logger)
	svc.TextExtract = func(path string) ([]string, error) {
		lines, ok := docs[filepath.Base(path)]
		if !ok {
			return nil, fmt.Errorf("unexpected document %s", path)
		}
		if lines == nil {
			return nil, fmt.Errorf("text extraction failed")
		}
		return lines, nil
	}
	return svc, outDir
}

func TestRun(t *testing.T) {
	t.Run("converts a document end to end", func(t *testing.T) {
		var logBuf bytes.Buffer
		svc, outDir := newTestService(t, map[string][]string{
			"2024-06.pdf": documentLines("FR12345678", "4,20"),
		}, &logBuf)

		res, err := svc.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Processed)
		assert.Equal(t, 0, res.Failed)
		assert.Equal(t, 1, res.Items)

		data, err := os.ReadFile(filepath.Join(outDir, "2024-06.csv"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "FR12345678;Serveurs;VPS 2023;vps-le-2-4-80")

		agg, err := os.ReadFile(filepath.Join(outDir, "report.csv"))
		require.NoError(t, err)
		assert.Contains(t, string(agg), "FR12345678")
		assert.NotContains(t, logBuf.String(), "level=WARN")
	})

	t.Run("deduplicates by invoice reference across documents", func(t *testing.T) {
		var logBuf bytes.Buffer
		svc, outDir := newTestService(t, map[string][]string{
			"a.pdf": documentLines("FR11111111", "4,20"),
			"b.pdf": documentLines("FR11111111", "4,20"),
		}, &logBuf)

		res, err := svc.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, res.Processed)
		assert.Equal(t, 1, res.Duplicates)
		assert.Equal(t, 1, res.Items, "aggregate holds one invoice's items")

		// Both per-document reports still exist with their items.
		for _, name := range []string{"a.csv", "b.csv"} {
			data, err := os.ReadFile(filepath.Join(outDir, name))
			require.NoError(t, err)
			assert.Contains(t, string(data), "FR11111111")
		}

		agg, err := os.ReadFile(filepath.Join(outDir, "report.csv"))
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(string(agg), "\n"), "header plus one row")
	})

	t.Run("one failing document does not stop the run", func(t *testing.T) {
		var logBuf bytes.Buffer
		svc, outDir := newTestService(t, map[string][]string{
			"bad.pdf":  nil, // extraction fails
			"good.pdf": documentLines("FR22222222", "4,20"),
		}, &logBuf)

		res, err := svc.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Processed)
		assert.Equal(t, 1, res.Failed)

		_, err = os.Stat(filepath.Join(outDir, "bad.csv"))
		assert.True(t, os.IsNotExist(err), "failed document contributes nothing")

		agg, err := os.ReadFile(filepath.Join(outDir, "report.csv"))
		require.NoError(t, err)
		assert.Contains(t, string(agg), "FR22222222")
		assert.Contains(t, logBuf.String(), "could not process document")
	})

	t.Run("warns on total mismatch but keeps the document", func(t *testing.T) {
		var logBuf bytes.Buffer
		svc, outDir := newTestService(t, map[string][]string{
			"gap.pdf": documentLines("FR33333333", "100,00"),
		}, &logBuf)

		res, err := svc.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Processed)
		assert.Equal(t, 1, res.Items)

		assert.Contains(t, logBuf.String(), "printed total does not match")

		data, err := os.ReadFile(filepath.Join(outDir, "gap.csv"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "FR33333333")
	})

	t.Run("document without reference fails whole", func(t *testing.T) {
		var logBuf bytes.Buffer
		svc, _ := newTestService(t, map[string][]string{
			"anon.pdf": {
				"Date d'émission : 15/06/2024",
				"Abonnement Référence Quantité Prix unitaire Prix HT",
				"VPS 2023 vps-le-2-4-80 1 4,20 € 4,20 €",
			},
		}, &logBuf)

		res, err := svc.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, res.Processed)
		assert.Equal(t, 1, res.Failed)
		assert.Contains(t, logBuf.String(), "no invoice reference")
	})

	t.Run("ignores non-PDF entries", func(t *testing.T) {
		var logBuf bytes.Buffer
		svc, _ := newTestService(t, map[string][]string{
			"doc.pdf": documentLines("FR44444444", "4,20"),
		}, &logBuf)
		require.NoError(t, os.WriteFile(filepath.Join(svc.cfg.InputDir, "notes.txt"), []byte("x"), 0644))

		res, err := svc.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Processed)
		assert.Equal(t, 0, res.Failed)
	})

	t.Run("writes optional aggregate formats", func(t *testing.T) {
		var logBuf bytes.Buffer
		svc, outDir := newTestService(t, map[string][]string{
			"doc.pdf": documentLines("FR55555555", "4,20"),
		}, &logBuf)
		svc.cfg.WriteXLSX = true
		svc.cfg.WriteJSON = true

		_, err := svc.Run(context.Background())
		require.NoError(t, err)

		for _, name := range []string{"report.csv", "report.xlsx", "report.json"} {
			_, err := os.Stat(filepath.Join(outDir, name))
			assert.NoError(t, err, name)
		}
	})

	t.Run("empty input directory still writes the aggregate header", func(t *testing.T) {
		var logBuf bytes.Buffer
		svc, outDir := newTestService(t, map[string][]string{}, &logBuf)

		res, err := svc.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, res.Processed)

		data, err := os.ReadFile(filepath.Join(outDir, "report.csv"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "invoice;section;description")
	})

	t.Run("missing input directory is fatal", func(t *testing.T) {
		var logBuf bytes.Buffer
		svc, _ := newTestService(t, map[string][]string{}, &logBuf)
		svc.cfg.InputDir = filepath.Join(svc.cfg.InputDir, "absent")

		_, err := svc.Run(context.Background())
		assert.Error(t, err)
	})
}
