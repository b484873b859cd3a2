// Package watch turns a filesystem inbox into assembly jobs. Drop a
// run folder (voiceover plus clips) into the inbox, touch a "ready"
// marker inside it, and the watcher enqueues the assembly.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"reelstitch/internal/pipeline"
	"reelstitch/internal/queue"
)

// ReadyMarker is the filename that signals a run folder is complete.
// Writers create it last, after all media files are in place.
const ReadyMarker = "ready"

// settleDelay gives the writer of the marker a moment to finish before
// the folder is scanned.
const settleDelay = 200 * time.Millisecond

type Watcher struct {
	inbox     string
	queue     *queue.Queue
	logger    *slog.Logger
	subtitles string

	// processed prevents re-enqueueing a folder when the marker fires
	// multiple events (create then write).
	processed map[string]bool
}

func New(inbox string, q *queue.Queue, subtitles string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		inbox:     inbox,
		queue:     q,
		logger:    logger,
		subtitles: subtitles,
		processed: make(map[string]bool),
	}
}

// Run watches the inbox until ctx is cancelled. Folders that already
// carry a marker at startup are enqueued first, so restarts do not lose
// work dropped while the watcher was down.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.inbox, 0o755); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.inbox); err != nil {
		return err
	}
	w.logger.Info("inbox watcher started", "inbox", w.inbox)

	w.sweep()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped")
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watch error", "err", err)
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	// New run folder: watch inside it for the marker.
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if filepath.Dir(event.Name) == w.inbox {
			if err := fw.Add(event.Name); err != nil {
				w.logger.Warn("cannot watch run folder", "folder", event.Name, "err", err)
			}
		}
		return
	}
	if filepath.Base(event.Name) != ReadyMarker {
		return
	}
	time.Sleep(settleDelay)
	w.enqueueFolder(filepath.Dir(event.Name))
}

// sweep enqueues run folders that were already marked ready.
func (w *Watcher) sweep() {
	entries, err := os.ReadDir(w.inbox)
	if err != nil {
		w.logger.Warn("inbox sweep failed", "err", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		folder := filepath.Join(w.inbox, e.Name())
		if _, err := os.Stat(filepath.Join(folder, ReadyMarker)); err == nil {
			w.enqueueFolder(folder)
		}
	}
}

func (w *Watcher) enqueueFolder(folder string) {
	if w.processed[folder] {
		return
	}
	voice, clips, err := pipeline.ScanRunFolder(folder)
	if err != nil {
		w.logger.Warn("run folder not usable", "folder", folder, "err", err)
		return
	}
	job, err := w.queue.Enqueue(queue.Request{
		Voiceover: voice,
		Videos:    clips,
		Subtitles: w.subtitles,
	})
	if err != nil {
		w.logger.Error("enqueue from inbox failed", "folder", folder, "err", err)
		return
	}
	w.processed[folder] = true
	w.logger.Info("inbox job enqueued", "folder", folder, "job_id", job.ID, "clips", len(clips))
}
