package records_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"satcerts/internal/records"
	"satcerts/internal/services"
)

func TestReadParsesRowsInOrder(t *testing.T) {
	input := "id,rfc\n7,aaa010101aa1\n8,BBB020202BB2\n"
	batch, err := records.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if batch.Skipped != 0 {
		t.Fatalf("expected no skipped rows, got %d", batch.Skipped)
	}
	if len(batch.Identifiers) != 2 {
		t.Fatalf("expected 2 identifiers, got %d", len(batch.Identifiers))
	}
	if batch.Identifiers[0].RFC != "AAA010101AA1" || batch.Identifiers[0].SequenceID != "7" {
		t.Fatalf("unexpected first identifier: %+v", batch.Identifiers[0])
	}
	if batch.Identifiers[1].RFC != "BBB020202BB2" || batch.Identifiers[1].SequenceID != "8" {
		t.Fatalf("unexpected second identifier: %+v", batch.Identifiers[1])
	}
}

func TestReadSkipsRowsWithoutRFC(t *testing.T) {
	input := "rfc,id\nAAA010101AA1,1\n,2\n   ,3\nBBB020202BB2,4\n"
	batch, err := records.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if batch.Skipped != 2 {
		t.Fatalf("expected 2 skipped rows, got %d", batch.Skipped)
	}
	if len(batch.Identifiers) != 2 {
		t.Fatalf("expected 2 identifiers, got %d", len(batch.Identifiers))
	}
	if batch.Identifiers[1].SequenceID != "4" {
		t.Fatalf("expected original sequence id preserved, got %q", batch.Identifiers[1].SequenceID)
	}
}

func TestReadDefaultsSequenceToOrdinal(t *testing.T) {
	input := "rfc\nAAA010101AA1\nBBB020202BB2\n"
	batch, err := records.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if batch.Identifiers[0].SequenceID != "1" || batch.Identifiers[1].SequenceID != "2" {
		t.Fatalf("expected ordinal sequence ids, got %+v", batch.Identifiers)
	}
}

func TestReadRequiresRFCColumn(t *testing.T) {
	_, err := records.Read(strings.NewReader("name,id\nfoo,1\n"))
	if err == nil {
		t.Fatal("expected error for missing rfc column")
	}
	if !strings.Contains(err.Error(), "rfc") {
		t.Fatalf("expected error to name the missing column, got %v", err)
	}
}

func TestReadEmptyInput(t *testing.T) {
	if _, err := records.Read(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReadKeepsDuplicates(t *testing.T) {
	input := "rfc,id\nAAA010101AA1,1\nAAA010101AA1,2\n"
	batch, err := records.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(batch.Identifiers) != 2 {
		t.Fatalf("expected duplicates preserved, got %d identifiers", len(batch.Identifiers))
	}
}

func TestLoadWrapsMissingFile(t *testing.T) {
	_, err := records.Load(filepath.Join(t.TempDir(), "absent.csv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid-input marker, got %v", err)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.csv")
	if err := os.WriteFile(path, []byte("rfc,id\nAAA010101AA1,1\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	batch, err := records.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(batch.Identifiers) != 1 {
		t.Fatalf("expected 1 identifier, got %d", len(batch.Identifiers))
	}
}
