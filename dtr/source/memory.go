/*
memory.go - In-memory snapshot sources

PURPOSE:
  Slice-backed implementations of every dtr source interface. Used by tests
  and by the dev server before a real backend is wired. Window filtering
  matches what the SQLite-backed sources do, so swapping stores does not
  change report output.
*/
package source

import (
	"context"
	"sync"

	"github.com/hrsuite/dtr-engine/dtr"
)

// Memory holds all snapshot collections behind one mutex. The zero value
// is ready to use.
type Memory struct {
	mu       sync.RWMutex
	punches  []dtr.TimePunch
	shifts   map[string][]dtr.ShiftAssignment
	locators []dtr.LocatorRecord
	fixLogs  []dtr.FixLogRecord
	leaves   []dtr.LeaveRecord
	travels  []dtr.TravelRecord
	cdoUses  []dtr.CDOUseRecord
	holidays []dtr.Holiday
}

func NewMemory() *Memory {
	return &Memory{shifts: make(map[string][]dtr.ShiftAssignment)}
}

// Sources bundles the store into a dtr.Sources wired entirely to itself.
func (m *Memory) Sources() dtr.Sources {
	return dtr.Sources{
		Punches:  m,
		Shifts:   m,
		Locators: m,
		FixLogs:  m,
		Leaves:   m,
		Travels:  m,
		CDOUses:  m,
		Holidays: m,
	}
}

// ==== LOADERS ====

func (m *Memory) AddPunches(punches ...dtr.TimePunch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.punches = append(m.punches, punches...)
}

func (m *Memory) SetAssignments(employeeID string, assignments ...dtr.ShiftAssignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[employeeID] = assignments
}

func (m *Memory) AddLocators(records ...dtr.LocatorRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locators = append(m.locators, records...)
}

// AddFixLogs prepends, so the most recently added approval wins, matching
// the most-recent-first ordering the reconciler expects.
func (m *Memory) AddFixLogs(records ...dtr.FixLogRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixLogs = append(append([]dtr.FixLogRecord{}, records...), m.fixLogs...)
}

func (m *Memory) AddLeaves(records ...dtr.LeaveRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves = append(m.leaves, records...)
}

func (m *Memory) AddTravels(records ...dtr.TravelRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.travels = append(m.travels, records...)
}

func (m *Memory) AddCDOUses(records ...dtr.CDOUseRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cdoUses = append(m.cdoUses, records...)
}

func (m *Memory) AddHolidays(holidays ...dtr.Holiday) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays = append(m.holidays, holidays...)
}

// ==== SOURCE INTERFACES ====

func (m *Memory) Punches(_ context.Context, employeeID string, window dtr.Window) ([]dtr.TimePunch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dtr.TimePunch
	for _, p := range m.punches {
		if p.EmployeeID == employeeID && window.Contains(p.Date()) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) Assignments(_ context.Context, employeeID string) ([]dtr.ShiftAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shifts[employeeID], nil
}

func (m *Memory) Locators(_ context.Context, employeeID string, window dtr.Window) ([]dtr.LocatorRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dtr.LocatorRecord
	for _, r := range m.locators {
		if r.EmployeeID == employeeID && window.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) FixLogs(_ context.Context, employeeID string, window dtr.Window) ([]dtr.FixLogRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dtr.FixLogRecord
	for _, r := range m.fixLogs {
		if r.EmployeeID == employeeID && window.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) Leaves(_ context.Context, employeeID string, window dtr.Window) ([]dtr.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dtr.LeaveRecord
	for _, r := range m.leaves {
		if r.EmployeeID == employeeID && window.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) Travels(_ context.Context, employeeID string, window dtr.Window) ([]dtr.TravelRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dtr.TravelRecord
	for _, r := range m.travels {
		if r.EmployeeID == employeeID && window.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) CDOUses(_ context.Context, employeeID string, window dtr.Window) ([]dtr.CDOUseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dtr.CDOUseRecord
	for _, r := range m.cdoUses {
		if r.EmployeeID == employeeID && window.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) Holidays(_ context.Context, window dtr.Window) ([]dtr.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dtr.Holiday
	for _, h := range m.holidays {
		if h.Recurring {
			out = append(out, h)
			continue
		}
		if window.Contains(h.Date) {
			out = append(out, h)
		}
	}
	return out, nil
}
