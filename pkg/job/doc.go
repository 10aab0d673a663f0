// Package job runs recurring background tasks on cron schedules.
//
// Tasks are registered before Start and run inside a recover wrapper, so
// one panicking task cannot take down the scheduler. Stop waits for
// in-flight tasks up to the caller's context deadline.
package job
