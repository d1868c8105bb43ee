package gather

import (
	"context"

	"pharos/internal/errs"

	"go.uber.org/zap"
)

// phase is one of the three ordered lifecycle stages within a pass.
type phase int

const (
	phaseBeforePass phase = iota
	phasePass
	phaseAfterPass
)

func (p phase) String() string {
	switch p {
	case phaseBeforePass:
		return "beforePass"
	case phasePass:
		return "pass"
	case phaseAfterPass:
		return "afterPass"
	default:
		return "unknown"
	}
}

// runPhase invokes one lifecycle hook on each of the pass's gatherers,
// strictly sequentially. Hooks share browser state, so parallelism here would
// corrupt measurements. Every invocation's outcome is recorded; a fatal error
// aborts the remaining sequence, a recoverable one only marks its gatherer.
func (p *passRun) runPhase(ctx context.Context, ph phase, data *PassData) error {
	for _, b := range p.pass.Gatherers {
		gctx := p.invocationContext(b)

		var value any
		var err error
		switch ph {
		case phaseBeforePass:
			value, err = b.Gatherer.BeforePass(ctx, gctx)
		case phasePass:
			value, err = b.Gatherer.Pass(ctx, gctx)
		case phaseAfterPass:
			value, err = b.Gatherer.AfterPass(ctx, gctx, data)
		}

		p.rs.append(b.Gatherer.Name(), Outcome{Value: value, Err: err})
		if err == nil {
			continue
		}
		if errs.IsFatal(err) {
			p.log.Error("gatherer failed fatally",
				zap.String("gatherer", b.Gatherer.Name()),
				zap.Stringer("phase", ph),
				zap.Error(err))
			return err
		}
		p.log.Debug("gatherer failed; continuing",
			zap.String("gatherer", b.Gatherer.Name()),
			zap.Stringer("phase", ph),
			zap.Error(err))
	}
	return nil
}
