package store

import "github.com/odysseus0/svgsafe/internal/model"

type Run = model.Run
type RecordRunInput = model.RecordRunInput
type RunListOptions = model.RunListOptions
type Stats = model.Stats
type SignatureCount = model.SignatureCount
