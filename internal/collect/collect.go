// Package collect gathers evidence for an investigation. Each collector
// produces one store.Evidence value with an initial chain-of-custody entry;
// the caller decides which investigation it belongs to and persists it.
package collect

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"inquest/internal/store"
)

// Collector produces one evidence item.
type Collector interface {
	// Collect gathers the evidence. InvestigationID is left empty; the
	// caller assigns ownership before persisting.
	Collect(ctx context.Context) (*store.Evidence, error)
}

// DefaultBatchParallelism bounds concurrent collectors in Batch.
const DefaultBatchParallelism = 4

// Batch runs collectors concurrently (bounded) and returns the items in
// collector order. One failing collector fails the batch.
func Batch(ctx context.Context, collectors ...Collector) ([]*store.Evidence, error) {
	items := make([]*store.Evidence, len(collectors))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultBatchParallelism)
	for i, c := range collectors {
		g.Go(func() error {
			ev, err := c.Collect(ctx)
			if err != nil {
				return err
			}
			items[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// newEvidence stamps the common fields and the collection custody entry.
func newEvidence(evType, source, collector string) *store.Evidence {
	now := time.Now().UTC()
	actor := collectorActor()
	return &store.Evidence{
		Type:      evType,
		Source:    source,
		CreatedAt: now,
		Metadata: store.EvidenceMetadata{
			Timestamp: now,
			Collector: collector,
		},
		ChainOfCustody: []store.CustodyEntry{{
			Timestamp: now,
			Actor:     actor,
			Action:    "collected",
			Note:      "collected by " + collector,
		}},
	}
}

func collectorActor() string {
	host, _ := os.Hostname()
	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}
	return user + "@" + host
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// CommandCollector captures the output of one shell command as evidence.
type CommandCollector struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// Collect runs the command and records stdout, stderr, and the exit code.
// A non-zero exit is still evidence, not an error; only failure to start
// the process fails the collection.
func (c CommandCollector) Collect(ctx context.Context) (*store.Evidence, error) {
	if c.Command == "" {
		return nil, fmt.Errorf("command collector: empty command")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("run %s: %w", c.Command, err)
		}
	}

	ev := newEvidence(store.EvidenceCommandOutput, strings.TrimSpace(c.Command+" "+strings.Join(c.Args, " ")), "command")
	ev.Content = map[string]any{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
	}
	ev.Metadata.Size = int64(stdout.Len())
	ev.Metadata.Checksum = checksum(stdout.Bytes())
	return ev, nil
}

// FileCollector snapshots one file's contents and checksum.
type FileCollector struct {
	Path string
}

func (c FileCollector) Collect(ctx context.Context) (*store.Evidence, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", c.Path, err)
	}
	info, err := os.Stat(c.Path)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", c.Path, err)
	}

	ev := newEvidence(store.EvidenceFileSnapshot, c.Path, "file")
	ev.Path = c.Path
	ev.Content = map[string]any{
		"data":        string(data),
		"mode":        info.Mode().String(),
		"modified_at": info.ModTime().UTC(),
	}
	ev.Metadata.Size = info.Size()
	ev.Metadata.Checksum = checksum(data)
	return ev, nil
}

// SysInfoCollector captures basic host facts.
type SysInfoCollector struct{}

func (SysInfoCollector) Collect(ctx context.Context) (*store.Evidence, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	wd, _ := os.Getwd()

	ev := newEvidence(store.EvidenceSystemInfo, host, "sysinfo")
	ev.Content = map[string]any{
		"hostname":    host,
		"os":          runtime.GOOS,
		"arch":        runtime.GOARCH,
		"num_cpu":     runtime.NumCPU(),
		"go_version":  runtime.Version(),
		"working_dir": wd,
		"pid":         os.Getpid(),
	}
	return ev, nil
}
