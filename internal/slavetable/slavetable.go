// Package slavetable holds the per-slot state of SPI stack slaves: their
// presence, busy status, and the UIDs they answer to.
package slavetable

// MaxSlaves is the number of chip-select slots on the stack bus.
const MaxSlaves = 8

// MaxUIDs is the largest number of UIDs a single slave may report.
const MaxUIDs = 16

// Status is the presence/busy state of a slot.
type Status int

const (
	Absent Status = iota
	Available
	AvailableBusy
)

// Slave is one chip-select slot's state.
type Slave struct {
	StackAddress int
	SelectPin    int // slot->pin is fixed by hardware; see interfaces.Selector
	Status       Status
	UIDs         [MaxUIDs]uint32
	UIDCount     int
}

// AddUID appends uid to the slave's UID list. uid must be non-zero; 0 is
// reserved for broadcast/unassigned and is never stored. Returns false if
// the slave's UID list is already full.
func (s *Slave) AddUID(uid uint32) bool {
	if uid == 0 || s.UIDCount >= MaxUIDs {
		return false
	}
	s.UIDs[s.UIDCount] = uid
	s.UIDCount++
	return true
}

// HasUID reports whether uid is one of this slave's registered UIDs.
func (s *Slave) HasUID(uid uint32) bool {
	for i := 0; i < s.UIDCount; i++ {
		if s.UIDs[i] == uid {
			return true
		}
	}
	return false
}

// Table is the fixed routing table of up to MaxSlaves slots.
type Table struct {
	Slaves [MaxSlaves]Slave
}

// New builds a Table with all slots marked Absent, stack addresses set to
// their index, and select pins assigned from pins (pins[i] is slot i's
// chip-select GPIO; the mapping is fixed by hardware wiring).
func New(pins [MaxSlaves]int) *Table {
	t := &Table{}
	for i := range t.Slaves {
		t.Slaves[i] = Slave{
			StackAddress: i,
			SelectPin:    pins[i],
			Status:       Absent,
		}
	}
	return t
}

// SlaveNum is the count of present slaves: the contiguous prefix of slots
// discovery found, not a count of Absent-marked slots scattered throughout.
func (t *Table) SlaveNum() int {
	n := 0
	for i := range t.Slaves {
		if t.Slaves[i].Status == Absent {
			break
		}
		n++
	}
	return n
}

// SlaveForUID scans present slaves in index order and returns the first
// whose UID list contains uid, or nil if no slave claims it.
func (t *Table) SlaveForUID(uid uint32) *Slave {
	n := t.SlaveNum()
	for i := 0; i < n; i++ {
		if t.Slaves[i].HasUID(uid) {
			return &t.Slaves[i]
		}
	}
	return nil
}
