package booking

import "strings"

// FetchKind identifies one of the two dependent queries.
type FetchKind int

const (
	FetchDoctors FetchKind = iota
	FetchSlots
	fetchKinds
)

func (k FetchKind) String() string {
	switch k {
	case FetchDoctors:
		return "doctors"
	case FetchSlots:
		return "slots"
	default:
		return "unknown"
	}
}

// FetchKey is the part of the selection a dependent query was issued for:
// the department for doctors, the (doctor, date) pair for slots.
type FetchKey struct {
	Department string
	DoctorID   string
	Date       Date
}

// FetchRequest asks the coordinator to run a dependent query.
type FetchRequest struct {
	Kind FetchKind
	Key  FetchKey
}

// Selection is the draft plus the two derived lists. Transitions are pure:
// they return a new Selection and the fetches to issue, and never do I/O.
// Lists are replaced, never modified in place, so copies may share them.
type Selection struct {
	Draft   Draft
	Doctors []Doctor
	Slots   []string
}

// Key returns the current selection key for kind.
func (s Selection) Key(kind FetchKind) FetchKey {
	if kind == FetchDoctors {
		return FetchKey{Department: s.Draft.Department}
	}
	return FetchKey{DoctorID: s.Draft.DoctorID, Date: s.Draft.AppointmentDate}
}

func (s Selection) SetPatient(id string) Selection {
	s.Draft.PatientID = strings.TrimSpace(id)
	return s
}

func (s Selection) SetAppointmentType(t AppointmentType) Selection {
	s.Draft.AppointmentType = t
	return s
}

func (s Selection) SetNotes(text string) Selection {
	s.Draft.Notes = text
	return s
}

// SetDepartment resets everything downstream and requests the doctor list.
// Reselecting the current department changes nothing.
func (s Selection) SetDepartment(id string) (Selection, []FetchRequest) {
	id = strings.TrimSpace(id)
	if id == s.Draft.Department {
		return s, nil
	}
	s.Draft.Department = id
	s.Draft.DoctorID = ""
	s.Draft.AppointmentTime = ""
	s.Doctors = nil
	s.Slots = nil
	if id == "" {
		return s, nil
	}
	return s, []FetchRequest{{Kind: FetchDoctors, Key: s.Key(FetchDoctors)}}
}

// SetDoctor requires a department and a doctor from the current list. It
// clears the time and slot list, and requests slots when a date is chosen.
func (s Selection) SetDoctor(id string) (Selection, []FetchRequest, error) {
	id = strings.TrimSpace(id)
	if s.Draft.Department == "" {
		return s, nil, ErrDepartmentRequired
	}
	if id == s.Draft.DoctorID {
		return s, nil, nil
	}
	if id != "" && !s.hasDoctor(id) {
		return s, nil, ErrDoctorNotSelectable
	}
	s.Draft.DoctorID = id
	s.Draft.AppointmentTime = ""
	s.Slots = nil
	return s, s.slotsRequest(), nil
}

// SetDate rejects days before today. It clears the time and slot list and
// requests slots when a doctor is chosen.
func (s Selection) SetDate(d Date, today Date) (Selection, []FetchRequest, error) {
	if !d.IsZero() && d.Before(today) {
		return s, nil, &ValidationError{Field: "appointmentDate", Message: MsgPastDate}
	}
	if d == s.Draft.AppointmentDate {
		return s, nil, nil
	}
	s.Draft.AppointmentDate = d
	s.Draft.AppointmentTime = ""
	s.Slots = nil
	return s, s.slotsRequest(), nil
}

// SetTime accepts only members of the current slot list; anything else is a
// no-op reported as false. The empty string clears the time.
func (s Selection) SetTime(slot string) (Selection, bool) {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		s.Draft.AppointmentTime = ""
		return s, true
	}
	for _, candidate := range s.Slots {
		if candidate == slot {
			s.Draft.AppointmentTime = slot
			return s, true
		}
	}
	return s, false
}

// ApplyDoctors installs a fetched doctor list.
func (s Selection) ApplyDoctors(doctors []Doctor) Selection {
	s.Doctors = append([]Doctor(nil), doctors...)
	return s
}

// ApplySlots installs a fetched slot list.
func (s Selection) ApplySlots(slots []string) Selection {
	s.Slots = append([]string(nil), slots...)
	return s
}

func (s Selection) hasDoctor(id string) bool {
	for _, d := range s.Doctors {
		if d.ID == id {
			return true
		}
	}
	return false
}

func (s Selection) slotsRequest() []FetchRequest {
	if s.Draft.DoctorID == "" || s.Draft.AppointmentDate.IsZero() {
		return nil
	}
	return []FetchRequest{{Kind: FetchSlots, Key: s.Key(FetchSlots)}}
}
