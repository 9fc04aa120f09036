package mixer

// Param is a gain value that moves linearly toward its target one sample at a
// time, so every change is heard as a short ramp instead of a step.
type Param struct {
	value     float64
	target    float64
	step      float64
	remaining int
}

func NewParam(v float64) Param {
	return Param{value: v, target: v}
}

// RampTo starts a linear ramp from the current value. Any ramp in flight is
// replaced. samples <= 0 jumps immediately.
func (p *Param) RampTo(target float64, samples int) {
	p.target = target
	if samples <= 0 {
		p.value = target
		p.remaining = 0
		return
	}
	p.step = (target - p.value) / float64(samples)
	p.remaining = samples
}

// Next advances one sample and returns the gain to apply to it.
func (p *Param) Next() float64 {
	if p.remaining > 0 {
		p.remaining--
		if p.remaining == 0 {
			p.value = p.target
		} else {
			p.value += p.step
		}
	}
	return p.value
}

func (p *Param) Value() float64  { return p.value }
func (p *Param) Target() float64 { return p.target }
func (p *Param) Ramping() bool   { return p.remaining > 0 }
