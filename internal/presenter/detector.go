package presenter

import "github.com/alanyoungcy/polyconsole/internal/domain"

// Detector turns the backend's monotonic trade counter into edge events. It
// fires once per distinct non-zero value, so repeated snapshots carrying the
// same counter are absorbed.
type Detector struct {
	lastSeen float64
}

// Observe reports whether seq marks a new trade boundary and, if so, records
// it. A decrease counts as a new boundary.
func (d *Detector) Observe(seq domain.Num) bool {
	if !seq.Valid || seq.Value == 0 || seq.Value == d.lastSeen {
		return false
	}
	d.lastSeen = seq.Value
	return true
}

// LastSeen returns the last counter value that fired, 0 before the first.
func (d *Detector) LastSeen() float64 {
	return d.lastSeen
}
