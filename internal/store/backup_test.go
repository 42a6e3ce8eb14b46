package store

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestBackup_ArchivesStorageRoot(t *testing.T) {
	s := newTestStore(t, 10)
	ctx := context.Background()
	seedCase(t, s, "inv-bak", time.Now().UTC())
	if err := s.AddEvidence(ctx, &Evidence{InvestigationID: "inv-bak", Type: EvidenceManual, Source: "analyst"}); err != nil {
		t.Fatalf("AddEvidence: %v", err)
	}

	var buf bytes.Buffer
	if err := s.Backup(ctx, &buf); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	gz, err := gzip.NewReader(&buf)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	names := map[string]bool{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar: %v", err)
		}
		names[hdr.Name] = true
		if strings.HasSuffix(hdr.Name, lockSuffix) {
			t.Errorf("lock marker leaked into backup: %s", hdr.Name)
		}
	}

	for _, want := range []string{
		"investigations/index.json",
		"investigations/inv-bak.json",
		"evidence/index.json",
	} {
		if !names[want] {
			t.Errorf("archive missing %s (have %v)", want, names)
		}
	}
}
