// Package coordinator schedules the reconciliation passes of the search indexes.
//
// Every index variant has two recurring jobs. The minor job reconciles the
// notes modified in the hour that ended ten minutes before the current hour:
//
//	start, end := MinorWindow(now) // [hour-70m, hour-10m)
//
// The major job sweeps every note modified before hour-2h10m and catches
// anything a skipped or failed minor pass left behind:
//
//	cutoff := MajorWindowStart(now)
//
// A Runner turns a mode into a window and calls the sync.Manager of its
// variant. RunMinorSink and RunMajorSink only log the outcome; Sink returns
// it for the ops API and the CLI.
//
// The Coordinator runs each Job on its own timer aligned to multiples of the
// job interval and keeps no state between runs. Repairs are idempotent, so a
// pass that overlaps a manual run or a pass of the other mode is harmless.
//
// # Usage
//
//	runner := coordinator.NewRunnerFromConfig(notesManager, clock.Real{}, cfg.Sync)
//	jobs := coordinator.JobsFromConfig(cfg.Sync, sync.VariantNotes)
//	c, err := coordinator.New([]*coordinator.Runner{runner}, jobs)
//	if err != nil {
//		return err
//	}
//	go c.Start(ctx)
//	defer c.Stop()
package coordinator
