package fetch

import (
	"github.com/odysseus0/svgsafe/internal/config"
	"github.com/odysseus0/svgsafe/internal/model"
)

type Config = config.Config
type AuditItem = model.AuditItem
type AuditEntry = model.AuditEntry
type AuditReport = model.AuditReport
