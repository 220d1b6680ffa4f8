package usecase

import (
	"time"

	"github.com/carniceria-aranda/backend/internal/domain"
)

// Recorder receives counters from the ordering engine. The prometheus
// implementation lives in internal/infrastructure/metrics.
type Recorder interface {
	ObserveResolution(stage domain.MatchStage, kind domain.ResolutionKind)
	ObserveExtraction(items, diagnostics int, elapsed time.Duration)
	ObserveDiagnostic(kind domain.DiagnosticKind)
	ObserveMessage(mode domain.Mode, step domain.Step)
	ObserveOrder(lines int)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) ObserveResolution(domain.MatchStage, domain.ResolutionKind) {}
func (NopRecorder) ObserveExtraction(int, int, time.Duration) {}
func (NopRecorder) ObserveDiagnostic(domain.DiagnosticKind) {}
func (NopRecorder) ObserveMessage(domain.Mode, domain.Step) {}
func (NopRecorder) ObserveOrder(int) {}
