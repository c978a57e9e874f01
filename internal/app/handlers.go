package app

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/joseph-ayodele/claims-tracker/internal/async"
	"github.com/joseph-ayodele/claims-tracker/internal/entity"
	"github.com/joseph-ayodele/claims-tracker/internal/pipeline"
)

// Collector keeps every recorded run in memory, for batch reports.
type Collector struct {
	mu   sync.Mutex
	runs []entity.RunRecord
}

func (c *Collector) Record(_ context.Context, run entity.RunRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = append(c.runs, run)
	return nil
}

// Runs returns the collected runs ordered by file name.
func (c *Collector) Runs() []entity.RunRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]entity.RunRecord(nil), c.runs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out
}

// Documents is the slice of the processor used by ProcessHandler.
type Documents interface {
	Process(ctx context.Context, u *pipeline.Upload) (pipeline.Result, error)
}

// ProcessHandler stages a copy of each job's file under uploadDir and runs the full pipeline on it.
// A file already handled with the same size and modification time is skipped.
func ProcessHandler(docs Documents, uploadDir string) async.Handler {
	var (
		mu   sync.Mutex
		seen = map[string]fileStamp{}
	)
	return async.HandlerFunc(func(ctx context.Context, job async.Job) error {
		fi, err := os.Stat(job.Path)
		if err != nil {
			return err
		}
		stamp := fileStamp{size: fi.Size(), mod: fi.ModTime()}
		mu.Lock()
		if prev, ok := seen[job.Path]; ok && prev == stamp {
			mu.Unlock()
			return nil
		}
		seen[job.Path] = stamp
		mu.Unlock()

		u, err := pipeline.StageFile(uploadDir, job.Path, job.Mime)
		if err != nil {
			return err
		}
		if job.Name != "" {
			u.OriginalName = job.Name
		}
		_, err = docs.Process(ctx, u)
		return err
	})
}

type fileStamp struct {
	size int64
	mod  time.Time
}
