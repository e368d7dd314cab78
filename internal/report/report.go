// Package report exports a run's datasets: resultados.csv with one row per
// identifier and certificados.csv with one row per recovered certificate.
// Rows follow the input order of the batch.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"satcerts/internal/fileutil"
	"satcerts/internal/lookup"
)

var resultsHeader = []string{
	"id", "rfc", "estado", "intentos", "razon_social", "certificados", "pagina", "detalle_error",
}

var certificatesHeader = []string{
	"rfc", "razon_social", "numero_serie", "estado", "tipo", "fecha_inicial", "fecha_final", "url_descarga",
}

// WriteResults writes resultados.csv at path.
func WriteResults(path string, results []*lookup.Result) error {
	return writeCSV(path, resultsHeader, resultsRows(results))
}

// WriteCertificates writes certificados.csv at path. Lookups without
// certificates contribute no rows.
func WriteCertificates(path string, results []*lookup.Result) error {
	return writeCSV(path, certificatesHeader, certificateRows(results))
}

func resultsRows(results []*lookup.Result) [][]string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		razonSocial := ""
		if result.Report != nil {
			razonSocial = result.Report.RazonSocial
		}
		rows = append(rows, []string{
			result.Identifier.SequenceID,
			result.Identifier.RFC,
			string(result.Status),
			strconv.Itoa(len(result.Attempts)),
			razonSocial,
			strconv.Itoa(result.CertificateCount()),
			result.PagePath,
			result.Detail,
		})
	}
	return rows
}

func certificateRows(results []*lookup.Result) [][]string {
	var rows [][]string
	for _, result := range results {
		if result.Report == nil {
			continue
		}
		for _, cert := range result.Report.Certificates {
			rows = append(rows, []string{
				result.Identifier.RFC,
				result.Report.RazonSocial,
				cert.Serial,
				cert.Status,
				cert.Kind,
				cert.ValidFrom,
				cert.ValidTo,
				cert.DownloadURL,
			})
		}
	}
	return rows
}

func writeCSV(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := fileutil.WriteAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
