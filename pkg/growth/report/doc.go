// Package report recomputes funnel and variant statistics on a schedule.
//
// A Job runs the configured funnel window and experiment comparisons
// through a Source (normally the service facade, which publishes the
// results as Prometheus gauges) and logs a summary tagged with a run ID.
// Scheduler drives a Job from a cron expression:
//
//	job := report.NewJob(svc, &cfg.Reports, logger)
//	sched := report.NewScheduler(job)
//	if err := sched.Start(ctx); err != nil {
//	    return err
//	}
//	defer sched.Stop()
package report
