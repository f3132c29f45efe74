package transmitter

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Stats accumulates run counters. PacketsSent/PacketsFailed are updated only
// by the transmitter goroutine and are safe to read from any goroutine at
// any time via atomic loads. The goose-stop flag and reason are copied from
// the listener's result by the transmitter when the run ends, under mu, and
// are read through Row.
type Stats struct {
	PacketsSent   atomic.Uint64
	PacketsFailed atomic.Uint64

	StartTime time.Time
	EndTime   time.Time

	mu             sync.Mutex
	stoppedByGoose bool
	gooseReason    string
}

func (s *Stats) setGooseStop(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stoppedByGoose = true
	s.gooseReason = reason
}

func (s *Stats) gooseStop() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stoppedByGoose, s.gooseReason
}

// ElapsedSeconds returns the wall-clock duration of the run.
func (s *Stats) ElapsedSeconds() float64 {
	return s.EndTime.Sub(s.StartTime).Seconds()
}

// AverageRate returns packets sent per elapsed second, or 0 before any time
// has elapsed.
func (s *Stats) AverageRate() float64 {
	elapsed := s.ElapsedSeconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.PacketsSent.Load()) / elapsed
}

// RunReportRow is one CSV/table row summarizing a completed run, keyed by a
// per-run correlation ID so that repeated runs against the same interface
// can be told apart in aggregated logs and reports.
type RunReportRow struct {
	RunID          string  `csv:"run_id"`
	StartedAt      string  `csv:"started_at"`
	PacketsSent    uint64  `csv:"packets_sent"`
	PacketsFailed  uint64  `csv:"packets_failed"`
	AverageRateHz  float64 `csv:"average_rate_hz"`
	ElapsedSeconds float64 `csv:"elapsed_seconds"`
	StoppedByGoose bool    `csv:"stopped_by_goose"`
	GooseReason    string  `csv:"goose_reason"`
}

// Row renders the stats as one report row.
func (s *Stats) Row(runID uuid.UUID) RunReportRow {
	stopped, reason := s.gooseStop()
	return RunReportRow{
		RunID:          runID.String(),
		StartedAt:      s.StartTime.Format(time.RFC3339),
		PacketsSent:    s.PacketsSent.Load(),
		PacketsFailed:  s.PacketsFailed.Load(),
		AverageRateHz:  s.AverageRate(),
		ElapsedSeconds: s.ElapsedSeconds(),
		StoppedByGoose: stopped,
		GooseReason:    reason,
	}
}

// AppendCSV appends row to a CSV report file at path, writing a header first
// if the file does not yet exist.
func AppendCSV(path string, rows []RunReportRow) error {
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if os.IsNotExist(statErr) {
		return gocsv.MarshalFile(rows, f)
	}
	return gocsv.MarshalWithoutHeaders(rows, f)
}

// PrintTable renders rows as a human-readable table, in the teacher's
// go-pretty/table style.
func PrintTable(rows []RunReportRow) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Run ID", "Started", "Sent", "Failed", "Avg Hz", "Elapsed s", "Goose Stop"})
	for _, r := range rows {
		gooseCol := ""
		if r.StoppedByGoose {
			gooseCol = r.GooseReason
		}
		tw.AppendRow(table.Row{r.RunID, r.StartedAt, r.PacketsSent, r.PacketsFailed, r.AverageRateHz, r.ElapsedSeconds, gooseCol})
	}
	return tw.Render()
}
