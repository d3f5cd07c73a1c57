package internal

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/replica"
	"github.com/starford/folio/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Library.Root = filepath.Join(root, "library")
	cfg.Replica.LocalRoot = filepath.Join(root, "data")
	cfg.Replica.CentralRoot = cfg.Library.Root
	cfg.Index.Path = filepath.Join(root, "data", "folio.db")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestRun_UnknownMode(t *testing.T) {
	err := Run(context.Background(), WithConfig(testConfig(t)), WithMode("bogus"))
	if err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Fatalf("err = %v", err)
	}
}

func TestRun_SyncAdoptsCentral(t *testing.T) {
	cfg := testConfig(t)

	// First run creates the directories.
	var out bytes.Buffer
	if err := Run(context.Background(), WithConfig(cfg), WithMode(ModeSync), WithOutput(&out)); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("empty library printed %q", out.String())
	}

	p := testutil.WritePDF(t, cfg.Library.BooksPath(), "book.pdf", testutil.PDFSpec{Pages: 3, Title: "Synced"})
	hash, err := checksum.File(p)
	if err != nil {
		t.Fatal(err)
	}

	central := replica.NewDir[models.Progress](replica.Central, cfg.Replica.CentralProgressPath(), true)
	rec := models.NewProgress(hash, time.Now())
	rec.CurrentPage = 2
	rec.Version = 5
	if err := central.Write(hash, rec); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := Run(context.Background(), WithConfig(cfg), WithMode(ModeSync), WithOutput(&out)); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != hash {
		t.Errorf("changed = %q, want %q", got, hash)
	}

	local := replica.NewDir[models.Progress](replica.Local, cfg.Replica.LocalProgressPath(), true)
	got, found, err := local.Read(hash)
	if err != nil || !found {
		t.Fatalf("local read: found=%v err=%v", found, err)
	}
	if got.Version != 5 || got.CurrentPage != 2 {
		t.Errorf("local = %+v", got)
	}

	// Already in agreement: nothing adopted.
	out.Reset()
	if err := Run(context.Background(), WithConfig(cfg), WithMode(ModeSync), WithOutput(&out)); err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("converged sync printed %q", out.String())
	}
}

func TestRun_ReplicationDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Replica.Enabled = false

	var out bytes.Buffer
	if err := Run(context.Background(), WithConfig(cfg), WithMode(ModeSync), WithOutput(&out)); err != nil {
		t.Fatalf("sync: %v", err)
	}
	central := replica.NewDir[models.Progress](replica.Central, cfg.Replica.CentralProgressPath(), true)
	if central.Available() {
		t.Error("central progress dir created while replication disabled")
	}
}
