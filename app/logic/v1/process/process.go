package process

import (
	"github.com/robfig/cron/v3"

	"github.com/sagechat-ai/sagechat/app/core"
	"github.com/sagechat-ai/sagechat/pkg/register"
)

type Process struct {
	cron *cron.Cron
	core *core.Core
}

var p *Process

type ProcessKey struct{}

func NewProcess(core *core.Core) *Process {
	p = &Process{
		cron: cron.New(),
		core: core,
	}

	for _, h := range register.ResolveFuncHandlers[*Process](ProcessKey{}) {
		h(p)
	}

	return p
}

func (p *Process) Cron() *cron.Cron {
	return p.cron
}

func (p *Process) Core() *core.Core {
	return p.core
}

func (p *Process) Start() {
	StartSideEffectProcess(p.core, 5)
	p.cron.Start()
}

func (p *Process) Stop() {
	if p.cron != nil {
		ctx := p.cron.Stop()
		<-ctx.Done()
	}
	if sideEffectProcess != nil {
		sideEffectProcess.cancel()
	}
}
