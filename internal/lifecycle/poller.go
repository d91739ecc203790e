package lifecycle

import (
	"fmt"
	"log"
	"time"

	"github.com/kweiss/reelsmith/internal/checkpoint"
	"github.com/kweiss/reelsmith/internal/events"
	"github.com/kweiss/reelsmith/internal/types"
)

// watcher turns checkpoint writes into events. It re-reads the run's
// checkpoint document at a fixed interval, diffs it against the last
// observed snapshot, and emits one event per newly observed change.
// Events therefore lag checkpoint truth by at most one interval; the
// checkpoint stays authoritative.
type watcher struct {
	ckpt     *checkpoint.Store
	bus      *events.Bus
	runID    string
	interval time.Duration

	last    *types.RunState
	stopped chan struct{}
	done    chan struct{}
}

func newWatcher(ckpt *checkpoint.Store, bus *events.Bus, runID string, interval time.Duration, baseline *types.RunState) *watcher {
	return &watcher{
		ckpt:     ckpt,
		bus:      bus,
		runID:    runID,
		interval: interval,
		last:     baseline.Clone(),
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *watcher) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopped:
			// Final diff so nothing written just before shutdown is lost.
			w.poll()
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// stop halts the watcher and blocks until its final poll has run.
func (w *watcher) stop() {
	close(w.stopped)
	<-w.done
}

func (w *watcher) poll() {
	fresh, err := w.ckpt.Load(w.runID)
	if err != nil {
		log.Printf("run %s: event watcher failed to read checkpoint: %v", w.runID, err)
		return
	}
	w.diff(w.last, fresh)
	w.last = fresh
}

// diff emits events for every observable difference between two
// snapshots, in a stable order: stage movement first, then produced
// items, then errors.
func (w *watcher) diff(old, cur *types.RunState) {
	if cur.CurrentStage != old.CurrentStage {
		w.bus.Emit(w.runID, types.EventStageTransition, map[string]any{
			"from": string(old.CurrentStage),
			"to":   string(cur.CurrentStage),
		})
	}

	prevDone := make(map[types.Stage]bool, len(old.CompletedStages))
	for _, st := range old.CompletedStages {
		prevDone[st] = true
	}
	for _, st := range cur.CompletedStages {
		if !prevDone[st] {
			w.bus.Emit(w.runID, types.EventStageCompleted, map[string]any{
				"stage": string(st),
			})
		}
	}

	// The story document counts as the analysis stage's produced item,
	// announced exactly once when it first appears.
	if old.StoryAnalysis == nil && cur.StoryAnalysis != nil {
		w.bus.Emit(w.runID, types.EventAssetGenerated, map[string]any{
			"item":  "document",
			"title": cur.StoryAnalysis.Title,
		})
	}

	for key, path := range cur.GeneratedAssets {
		if old.GeneratedAssets[key] != path {
			w.bus.Emit(w.runID, types.EventAssetGenerated, map[string]any{
				"item": key,
				"path": path,
			})
		}
	}

	for shot, pair := range cur.GeneratedFrames {
		if pair == nil {
			continue
		}
		prev := old.GeneratedFrames[shot]
		if pair.Start != "" && (prev == nil || prev.Start != pair.Start) {
			w.bus.Emit(w.runID, types.EventAssetGenerated, map[string]any{
				"item": fmt.Sprintf("shot:%d:start_frame", shot),
				"path": pair.Start,
			})
		}
		if pair.End != "" && (prev == nil || prev.End != pair.End) {
			w.bus.Emit(w.runID, types.EventAssetGenerated, map[string]any{
				"item": fmt.Sprintf("shot:%d:end_frame", shot),
				"path": pair.End,
			})
		}
	}

	for shot, path := range cur.GeneratedVideos {
		if path != "" && old.GeneratedVideos[shot] != path {
			w.bus.Emit(w.runID, types.EventAssetGenerated, map[string]any{
				"item": fmt.Sprintf("shot:%d:clip", shot),
				"path": path,
			})
		}
	}

	if cur.FinalCutPath != "" && cur.FinalCutPath != old.FinalCutPath {
		w.bus.Emit(w.runID, types.EventAssetGenerated, map[string]any{
			"item": "final_cut",
			"path": cur.FinalCutPath,
		})
	}

	for i := len(old.Errors); i < len(cur.Errors); i++ {
		rec := cur.Errors[i]
		payload := map[string]any{
			"stage":   string(rec.Stage),
			"message": rec.Error,
		}
		if rec.Shot != nil {
			payload["shot"] = *rec.Shot
		}
		w.bus.Emit(w.runID, types.EventLog, payload)
	}
}
