package runner

import (
	"fmt"
	"os"
	"path/filepath"

	"satcerts/internal/fileutil"
	"satcerts/internal/records"
	"satcerts/internal/textutil"
)

const (
	captchaDirName       = "captchas"
	pagesDirName         = "paginas"
	resultsFileName      = "resultados.csv"
	certificatesFileName = "certificados.csv"
	databaseFileName     = "run.db"
	logFileName          = "run.log"
	lockFileName         = "satcerts.lock"
)

// runLayout resolves artifact locations inside one run directory.
type runLayout struct {
	root string
}

func newRunLayout(outputDir, runID string) runLayout {
	return runLayout{root: filepath.Join(outputDir, runID)}
}

func (l runLayout) captchaDir() string      { return filepath.Join(l.root, captchaDirName) }
func (l runLayout) pagesDir() string        { return filepath.Join(l.root, pagesDirName) }
func (l runLayout) resultsCSV() string      { return filepath.Join(l.root, resultsFileName) }
func (l runLayout) certificatesCSV() string { return filepath.Join(l.root, certificatesFileName) }
func (l runLayout) database() string        { return filepath.Join(l.root, databaseFileName) }
func (l runLayout) logFile() string         { return filepath.Join(l.root, logFileName) }

// prepare creates the run directory tree. The run directory itself must not
// exist yet; two runs never share one.
func (l runLayout) prepare() error {
	if err := os.Mkdir(l.root, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	for _, dir := range []string{l.captchaDir(), l.pagesDir()} {
		if err := fileutil.EnsureDir(dir); err != nil {
			return err
		}
	}
	return nil
}

// artifactSink writes attempt artifacts under the run directory. The image
// ordinal counts across the whole run, so file names sort in capture order.
type artifactSink struct {
	layout  runLayout
	ordinal int
}

func newArtifactSink(layout runLayout) *artifactSink {
	return &artifactSink{layout: layout}
}

func (s *artifactSink) SaveCaptcha(identifier records.Identifier, attempt int, image []byte) (string, error) {
	s.ordinal++
	name := fmt.Sprintf("a%04d_id%s_try%d.png", s.ordinal, textutil.SanitizeFileName(identifier.SequenceID), attempt)
	path := filepath.Join(s.layout.captchaDir(), name)
	if err := fileutil.WriteAtomic(path, image, 0o644); err != nil {
		return "", fmt.Errorf("write captcha image: %w", err)
	}
	return path, nil
}

func (s *artifactSink) SaveResultsPage(identifier records.Identifier, page string) (string, error) {
	name := fmt.Sprintf("id%s_%s.html", textutil.SanitizeFileName(identifier.SequenceID), textutil.SanitizeFileName(identifier.RFC))
	path := filepath.Join(s.layout.pagesDir(), name)
	if err := fileutil.WriteAtomic(path, []byte(page), 0o644); err != nil {
		return "", fmt.Errorf("write results page: %w", err)
	}
	return path, nil
}
