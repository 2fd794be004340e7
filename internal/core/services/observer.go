package services

import (
	"time"

	"github.com/manthysbr/jobpilot/internal/core/domain"
)

// NopObserver discards all measurements.
type NopObserver struct{}

func (NopObserver) ObservePoll(domain.JobStatus)            {}
func (NopObserver) ObserveStep(string, error, time.Duration) {}
func (NopObserver) ObserveRun(domain.WorkflowResult)        {}
