package profile

// #region builder

// Builder accumulates one profile fragment. It is owned by a single branch
// and freezes on Build: later setter calls are ignored.
type Builder struct {
	p      EntityProfile
	frozen bool
}

// NewBuilder starts a fragment for the given entity identity.
func NewBuilder(categoryField, entityValue string) *Builder {
	return &Builder{p: EntityProfile{categoryField: categoryField, entityValue: entityValue}}
}

func (b *Builder) State(s EntityState) *Builder {
	if !b.frozen {
		b.p.state = &s
	}
	return b
}

func (b *Builder) InitProgress(ip InitProgress) *Builder {
	if !b.frozen {
		b.p.initProgress = &ip
	}
	return b
}

func (b *Builder) ModelProfile(m ModelProfile) *Builder {
	if !b.frozen {
		b.p.modelProfile = &m
	}
	return b
}

func (b *Builder) IsActive(active bool) *Builder {
	if !b.frozen {
		b.p.isActive = &active
	}
	return b
}

func (b *Builder) LastActiveMs(ms int64) *Builder {
	if !b.frozen {
		b.p.lastActiveMs = &ms
	}
	return b
}

func (b *Builder) LastSampleMs(ms int64) *Builder {
	if !b.frozen {
		b.p.lastSampleMs = &ms
	}
	return b
}

// Build freezes the builder and returns the fragment.
func (b *Builder) Build() EntityProfile {
	b.frozen = true
	return b.p
}

// #endregion builder
