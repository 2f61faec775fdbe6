package srv

type Srv struct {
	ai AIDriver
}

type ApplyFunc func(*Srv)

func SetupSrvs(opts ...ApplyFunc) *Srv {
	a := &Srv{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func ApplyAI(cfg AIConfig) ApplyFunc {
	return func(s *Srv) {
		s.ai = SetupOpenAIDriver(cfg)
	}
}

func (s *Srv) AI() AIDriver {
	return s.ai
}
