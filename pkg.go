package triage

import (
	"github.com/modqueue/triage/cases"
	"github.com/modqueue/triage/engine"
	"github.com/modqueue/triage/escalation"
	"github.com/modqueue/triage/queue"
)

type Engine = engine.Engine
type Config = engine.Config
type Outbound = engine.Outbound
type Prompt = engine.Prompt
type Summary = engine.Summary

type Case = cases.Case
type CaseQueue = queue.CaseQueue

type Sanction = escalation.Sanction
type Notice = escalation.Notice
type Notifier = escalation.Notifier

var (
	SanctionNone      = escalation.SanctionNone
	SanctionSuspended = escalation.SanctionSuspended
	SanctionBanned    = escalation.SanctionBanned

	ReportKeyword      = engine.ReportKeyword
	ReviewKeyword      = engine.ReviewKeyword
	CancelKeyword      = engine.CancelKeyword
	HelpKeyword        = engine.HelpKeyword
	PerformanceKeyword = engine.PerformanceKeyword
)
