// Package reconciler brings the test plans of a project in line with a newly
// imported feature tree.
//
// # Overview
//
// Plans are named "{project} Test Plan v{X.Y.Z}". On every import the
// reconciler lists the plans of the project, takes the highest version as the
// current plan and classifies the new version against it:
//
//   - Major / Minor: a new plan is created next to the existing ones
//   - Patch / Same: every plan carrying the current version is deleted and a
//     fresh plan is created for the new version
//   - a lower version is rejected with version.ErrVersionRegression
//
// The new plan receives one suite per feature and one test case per scenario.
// Failures of single suites or cases are counted in the result and never
// abort the run; failures to list, delete or create the plan itself do.
//
// # Serialization
//
// ProjectLocks serializes reconciliations of the same project. Two imports
// racing on plan discovery could otherwise both delete and recreate plans.
//
// # Observability
//
// Progress and log lines are reported through a ProgressSink. Counters and
// durations are exported through Metrics.
package reconciler
