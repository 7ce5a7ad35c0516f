package cron

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/0xPuncker/jobspec-watcher/internal/definition"
	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/sirupsen/logrus"
)

const ExportTaskName = "export-definitions"

// ExportReport lists the outcome of one export run. Entries are
// "{kind}/{id}".
type ExportReport struct {
	Written []string
	Skipped []string
	Failed  map[string]error
}

type ExportJob struct {
	source        types.JobSource
	generator     *definition.Generator
	loadWatchList func() (*types.WatchList, error)
	outputDir     string
	timeout       time.Duration
	logger        *logrus.Logger
}

func NewExportJob(
	source types.JobSource,
	generator *definition.Generator,
	loadWatchList func() (*types.WatchList, error),
	outputDir string,
	logger *logrus.Logger,
) *ExportJob {
	return &ExportJob{
		source:        source,
		generator:     generator,
		loadWatchList: loadWatchList,
		outputDir:     outputDir,
		timeout:       2 * time.Minute,
		logger:        logger,
	}
}

// Run exports every watched job. It is the scheduler entry point.
func (j *ExportJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.Export(ctx)
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("failed to export %d of %d definitions",
			len(report.Failed), len(report.Written)+len(report.Skipped)+len(report.Failed))
	}
	return nil
}

// Export fetches every watched job with a forced refresh and writes its
// definition to the output directory. Jobs of an unsupported type are
// skipped.
func (j *ExportJob) Export(ctx context.Context) (*ExportReport, error) {
	list, err := j.loadWatchList()
	if err != nil {
		j.logger.Errorf("Failed to load watch list: %v", err)
		return nil, err
	}

	if err := os.MkdirAll(j.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	type target struct {
		kind types.JobKind
		id   string
	}

	targets := make([]target, 0, list.Len())
	for _, w := range list.Legacy {
		targets = append(targets, target{kind: types.KindLegacy, id: w.ID})
	}
	for _, w := range list.Typed {
		targets = append(targets, target{kind: types.KindTyped, id: w.ID})
	}

	j.logger.Infof("Exporting %d definitions (%d legacy, %d typed) to %s",
		len(targets), len(list.Legacy), len(list.Typed), j.outputDir)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		semaphore = make(chan struct{}, 5)
		report    = &ExportReport{Failed: make(map[string]error)}
	)

	for _, t := range targets {
		wg.Add(1)
		go func(t target) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			key := fmt.Sprintf("%s/%s", t.kind, t.id)
			err := j.exportOne(ctx, t.kind, t.id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Written = append(report.Written, key)
			case errors.Is(err, definition.ErrUnsupportedJobType):
				j.logger.WithField("job", key).Warn("Skipping job with unsupported type")
				report.Skipped = append(report.Skipped, key)
			default:
				report.Failed[key] = err
			}
		}(t)
	}

	wg.Wait()

	sort.Strings(report.Written)
	sort.Strings(report.Skipped)

	if len(report.Failed) > 0 {
		j.logger.Infof("=== Definitions failed to export (%d) ===", len(report.Failed))
		for key, err := range report.Failed {
			j.logger.Infof("  %s: %v", key, err)
		}
	}

	j.logger.Infof("Finished export! Wrote %d definitions, skipped %d.",
		len(report.Written), len(report.Skipped))

	return report, nil
}

func (j *ExportJob) exportOne(ctx context.Context, kind types.JobKind, id string) error {
	def, err := j.generator.Fetch(ctx, j.source, kind, id, true)
	if err != nil {
		return err
	}

	path := filepath.Join(j.outputDir, def.FileName())
	if err := writeFileAtomic(path, []byte(def.Text+"\n")); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	j.logger.WithFields(logrus.Fields{
		"kind": kind,
		"id":   id,
		"path": path,
	}).Debug("Definition written")
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
