// Package core runs conversions for the CLI and the web server.
//
// It sits between the transports and the [pipeline] package. The pipeline
// knows how to turn one file into a draft and one confirmed draft into a
// drawing; core adds what a long-lived process needs around that: a bound
// on concurrent runs, persistence of drafts between analysis and
// confirmation, batch conversion, and a mapping from errors to support
// codes that both transports show to users.
//
// # Service
//
// [Service] is the main entry point:
//
//	svc := core.NewService(p, store, cfg.Run)
//
//	d, err := svc.Analyze(ctx, "survey.csv") // stored draft, err is any inference failure
//	res, err := svc.Confirm(ctx, d.RunID, pipeline.Decision{
//	    Overrides: map[string]mapping.Role{"E": mapping.RoleX, "N": mapping.RoleY},
//	}, out)
//
// Analyze stores the draft even when inference fails, so the user can
// assign roles by hand. Confirm deletes the draft only after the DXF is
// written; a rejected decision leaves it in place for another attempt.
// [Service.Convert] and [Service.ConvertBatch] skip the review step and
// store nothing.
//
// # Concurrency
//
// Every run holds a slot in the [Limiter] for its duration. Acquire waits
// up to the configured time and then fails with [ErrTooManyRuns], which
// the web layer reports as 429. Batch conversion fans out with errgroup,
// bounded by the same limit. [Service.WaitForRuns] is used during
// graceful shutdown.
//
// # Error Handling
//
// [MapError] converts any error into a [UserMessage] with a support code
// such as MAP002 or INF001. Typed errors from the table, inference,
// mapping and dxf packages are matched first, then a few text patterns
// for errors that only exist as strings. Anything else is ERR000.
package core
