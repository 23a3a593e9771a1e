package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeMembers parses an exported member list. The payload must be a JSON
// array of member objects; names must be present and unique.
func DecodeMembers(data []byte) ([]Member, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, ErrInvalidFormat
	}
	var members []Member
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	r, err := NewRoster(members)
	if err != nil {
		return nil, err
	}
	return r.Members(), nil
}

// EncodeMembers renders members in the export format.
func EncodeMembers(members []Member) ([]byte, error) {
	if members == nil {
		members = []Member{}
	}
	return json.MarshalIndent(members, "", "  ")
}
