package tools

import (
	"labeltool/internal/scene"
	"labeltool/pkg/geometry"
)

// Proxy forwards every event to an interchangeable underlying tool and
// remembers the last pointer position so the underlying tool can be swapped
// mid-session.
type Proxy struct {
	underlying Tool
	lastPos    *geometry.Point2D
}

// NewProxy creates a proxy around t, which may be nil.
func NewProxy(t Tool) *Proxy {
	return &Proxy{underlying: t}
}

// Underlying returns the current underlying tool.
func (p *Proxy) Underlying() Tool {
	return p.underlying
}

// SetUnderlying shuts down the current tool and initialises t in its place,
// switching it in at the last known pointer position.
func (p *Proxy) SetUnderlying(t Tool) {
	if p.underlying != nil {
		if p.lastPos != nil {
			p.underlying.SwitchOut(*p.lastPos)
		}
		p.underlying.Shutdown()
	}
	p.underlying = t
	if p.underlying != nil {
		p.underlying.Init()
		if p.lastPos != nil {
			p.underlying.SwitchIn(*p.lastPos)
		}
	}
}

func (p *Proxy) track(pos geometry.Point2D) {
	p.lastPos = &pos
}

func (p *Proxy) Init() {
	if p.underlying != nil {
		p.underlying.Init()
	}
}

func (p *Proxy) Shutdown() {
	if p.underlying != nil {
		p.underlying.Shutdown()
	}
}

func (p *Proxy) SwitchIn(pos geometry.Point2D) {
	p.track(pos)
	if p.underlying != nil {
		p.underlying.SwitchIn(pos)
	}
}

func (p *Proxy) SwitchOut(pos geometry.Point2D) {
	if p.underlying != nil {
		p.underlying.SwitchOut(pos)
	}
	p.lastPos = nil
}

func (p *Proxy) LeftClick(pos geometry.Point2D, ev Event) {
	p.track(pos)
	if p.underlying != nil {
		p.underlying.LeftClick(pos, ev)
	}
}

func (p *Proxy) Cancel(pos geometry.Point2D) bool {
	p.track(pos)
	if p.underlying != nil {
		return p.underlying.Cancel(pos)
	}
	return false
}

func (p *Proxy) ButtonDown(pos geometry.Point2D, ev Event) {
	p.track(pos)
	if p.underlying != nil {
		p.underlying.ButtonDown(pos, ev)
	}
}

func (p *Proxy) ButtonUp(pos geometry.Point2D, ev Event) {
	p.track(pos)
	if p.underlying != nil {
		p.underlying.ButtonUp(pos, ev)
	}
}

func (p *Proxy) Move(pos geometry.Point2D) {
	p.track(pos)
	if p.underlying != nil {
		p.underlying.Move(pos)
	}
}

func (p *Proxy) Drag(pos geometry.Point2D, ev Event) bool {
	p.track(pos)
	if p.underlying != nil {
		return p.underlying.Drag(pos, ev)
	}
	return false
}

func (p *Proxy) Wheel(pos geometry.Point2D, dx, dy float64) bool {
	p.track(pos)
	if p.underlying != nil {
		return p.underlying.Wheel(pos, dx, dy)
	}
	return false
}

func (p *Proxy) KeyDown(k Key) bool {
	if p.underlying != nil {
		return p.underlying.KeyDown(k)
	}
	return false
}

func (p *Proxy) EntityMouseIn(e scene.Entity) {
	if p.underlying != nil {
		p.underlying.EntityMouseIn(e)
	}
}

func (p *Proxy) EntityMouseOut(e scene.Entity) {
	if p.underlying != nil {
		p.underlying.EntityMouseOut(e)
	}
}

func (p *Proxy) EntityDeleted(e scene.Entity) {
	if p.underlying != nil {
		p.underlying.EntityDeleted(e)
	}
}
