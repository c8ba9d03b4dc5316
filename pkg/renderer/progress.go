package renderer

import (
	"time"
)

// Progress reports completion of a batch of tasks. Done is called only from
// the goroutine collecting results.
type Progress struct {
	name     string
	total    int
	done     int
	samples  int64
	show     bool
	start    time.Time
	nextStep int // next reported percentage
}

// NewProgress creates a reporter for total tasks. When show is false only a
// debug line is logged at the end.
func NewProgress(name string, total int, show bool) *Progress {
	return &Progress{name: name, total: total, show: show, start: time.Now(), nextStep: 10}
}

// Done records a finished task and logs every ten percent
func (p *Progress) Done(r TaskResult) {
	p.done++
	p.samples += r.Stats.Samples

	percent := 100 * p.done / max(1, p.total)
	if p.show && percent >= p.nextStep {
		elapsed := time.Since(p.start)
		eta := time.Duration(float64(elapsed) * float64(p.total-p.done) / float64(p.done))
		logger.Noticef("%s: %3d%% (%d/%d) elapsed %s, eta %s",
			p.name, percent, p.done, p.total, elapsed.Round(time.Millisecond), eta.Round(time.Second))
		for p.nextStep <= percent {
			p.nextStep += 10
		}
	}
	if p.done == p.total {
		logger.Debugf("%s: %d tasks, %d samples in %s", p.name, p.total, p.samples, time.Since(p.start))
	}
}

// Completed returns the number of finished tasks
func (p *Progress) Completed() int {
	return p.done
}
