package forecasting

import (
	"candlecast/pkg/errors"
)

// Stage is a step of a forecasting run. A run moves strictly forward:
//
//	init -> model_ready    -> forecasting -> done
//	init -> model_training -> forecasting -> done
type Stage int

const (
	StageInit Stage = iota
	StageModelReady
	StageModelTraining
	StageForecasting
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageModelReady:
		return "model_ready"
	case StageModelTraining:
		return "model_training"
	case StageForecasting:
		return "forecasting"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

var transitions = map[Stage][]Stage{
	StageInit:          {StageModelReady, StageModelTraining},
	StageModelReady:    {StageForecasting},
	StageModelTraining: {StageForecasting},
	StageForecasting:   {StageDone},
}

// Lifecycle tracks the current stage and rejects re-entry and skips
type Lifecycle struct {
	stage Stage
}

// Stage returns the current stage
func (l *Lifecycle) Stage() Stage {
	return l.stage
}

// Advance moves to the next stage
func (l *Lifecycle) Advance(to Stage) error {
	for _, allowed := range transitions[l.stage] {
		if allowed == to {
			l.stage = to
			return nil
		}
	}
	return errors.Wrapf(errors.ErrInternal, "illegal stage transition %s -> %s", l.stage, to)
}
