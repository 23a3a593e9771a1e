package core

import (
	"fmt"
	"strings"
)

// Roster is the ordered, mutable member list for the current period. It is
// owned by the calling layer and handed to Calculate by value via Members.
type Roster struct {
	members []Member
}

// MemberPatch holds optional field updates; nil fields are left unchanged.
type MemberPatch struct {
	Meals       *float64 `json:"meals,omitempty"`
	Deposits    *float64 `json:"deposits,omitempty"`
	Guest       *float64 `json:"guest,omitempty"`
	Fine        *float64 `json:"fine,omitempty"`
	IsGuestOnly *bool    `json:"isGuest,omitempty"`
}

// NewRoster builds a roster from an existing member list. Names must be
// present and unique (case-insensitive).
func NewRoster(members []Member) (*Roster, error) {
	r := &Roster{}
	for _, m := range members {
		m.Name = strings.TrimSpace(m.Name)
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if r.index(m.Name) >= 0 {
			return nil, fmt.Errorf("%q: %w", m.Name, ErrDuplicateMember)
		}
		r.members = append(r.members, m)
	}
	return r, nil
}

// Add appends a new member with zeroed amounts.
func (r *Roster) Add(name string, guestOnly bool) (Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Member{}, ErrEmptyName
	}
	if r.index(name) >= 0 {
		return Member{}, fmt.Errorf("%q: %w", name, ErrDuplicateMember)
	}
	m := Member{Name: name, IsGuestOnly: guestOnly}
	if err := m.Validate(); err != nil {
		return Member{}, err
	}
	r.members = append(r.members, m)
	return m, nil
}

// Remove deletes the member with the given name.
func (r *Roster) Remove(name string) error {
	i := r.index(name)
	if i < 0 {
		return fmt.Errorf("%q: %w", name, ErrMemberNotFound)
	}
	r.members = append(r.members[:i], r.members[i+1:]...)
	return nil
}

// Update applies patch to the named member. The roster is unchanged when the
// patched member fails validation.
func (r *Roster) Update(name string, patch MemberPatch) (Member, error) {
	i := r.index(name)
	if i < 0 {
		return Member{}, fmt.Errorf("%q: %w", name, ErrMemberNotFound)
	}
	m := r.members[i]
	if patch.Meals != nil {
		m.Meals = *patch.Meals
	}
	if patch.Deposits != nil {
		m.Deposits = *patch.Deposits
	}
	if patch.Guest != nil {
		m.Guest = *patch.Guest
	}
	if patch.Fine != nil {
		m.Fine = *patch.Fine
	}
	if patch.IsGuestOnly != nil {
		m.IsGuestOnly = *patch.IsGuestOnly
	}
	if err := m.Validate(); err != nil {
		return Member{}, err
	}
	r.members[i] = m
	return m, nil
}

// Get returns the named member.
func (r *Roster) Get(name string) (Member, bool) {
	i := r.index(name)
	if i < 0 {
		return Member{}, false
	}
	return r.members[i], true
}

// Members returns a copy of the member list in insertion order.
func (r *Roster) Members() []Member {
	return append([]Member(nil), r.members...)
}

func (r *Roster) Len() int { return len(r.members) }

func (r *Roster) NonGuestCount() int { return NonGuestCount(r.members) }

func (r *Roster) index(name string) int {
	name = strings.TrimSpace(name)
	for i, m := range r.members {
		if strings.EqualFold(m.Name, name) {
			return i
		}
	}
	return -1
}
