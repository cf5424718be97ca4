// Moderation triage engine: conversational report intake and review flows for human moderators, plus automated scoring of channel content.
//
// This package (`github.com/modqueue/triage`) contains a workflow engine that ingests flagged content and routes it through human and automated decision trees. Reports are collected over a multi-turn intake conversation, held in a priority queue, and adjudicated one at a time through a review conversation; accumulated violations convert into graduated sanctions. Per-user statistics and a calibration histogram over the automated classifier's scores are maintained alongside.
//
// See the subpackage docs for the individual components, and `cmd/triaged` for a daemon built on this package.
package triage
