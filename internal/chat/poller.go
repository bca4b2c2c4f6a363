package chat

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const coarseDecayInterval = 30 * time.Minute

// Poller periodically refreshes agent awareness and lets agents act on
// their own initiative.
type Poller struct {
	manager  *Manager
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller creates an autonomy poller ticking at the given interval.
func NewPoller(manager *Manager, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{manager: manager, interval: interval, logger: logger}
}

// Run drives the autonomy loop until the context is cancelled. Every
// tick each agent's awareness is refreshed and it may choose an action;
// every half hour desires take a coarse decay sweep.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	decay := time.NewTicker(coarseDecayInterval)
	defer decay.Stop()

	p.logger.Info("autonomy poller started", zap.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("autonomy poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		case <-decay.C:
			for _, ag := range p.manager.agents {
				ag.Autonomy.DecayDesires(0.5)
			}
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	users := p.manager.UserIDs()
	states := p.manager.agentStates()

	for _, ag := range p.manager.agents {
		ag.UpdateWorldAwareness(users, states, nil)
	}

	for _, ag := range p.manager.agents {
		action := ag.CheckAutonomousAction()
		if action == nil {
			continue
		}
		p.manager.ExecuteAction(ctx, ag, action)
	}
}
