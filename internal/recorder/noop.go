package recorder

import "InterbankSim/internal/market"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) StartRun(_ RunInfo) error                             { return nil }
func (n *NoopRecorder) RecordDay(_ *market.DayReport, _ []LedgerPoint) error { return nil }
func (n *NoopRecorder) Close() error                                         { return nil }
