package cli

import "github.com/odysseus0/svgsafe/internal/model"

type OutputFormat = model.OutputFormat
type Run = model.Run
type Stats = model.Stats
type RunListOptions = model.RunListOptions
type AuditItem = model.AuditItem
type AuditReport = model.AuditReport

const (
	OutputTable = model.OutputTable
	OutputJSON  = model.OutputJSON
	OutputWide  = model.OutputWide
)
