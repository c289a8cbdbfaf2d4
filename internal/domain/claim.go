package domain

import (
	"sort"
	"strings"
)

// OperationClaim is a coarse role tag drawn from a closed set.
type OperationClaim string

const (
	ClaimAdmin OperationClaim = "Admin"
	ClaimUser  OperationClaim = "User"
	ClaimWrite OperationClaim = "Write"
	ClaimRead  OperationClaim = "Read"
)

// order fixes the bit assigned to each claim in a ClaimSet.
var order = []OperationClaim{ClaimAdmin, ClaimUser, ClaimWrite, ClaimRead}

func (c OperationClaim) bit() (ClaimSet, bool) {
	for i, known := range order {
		if known == c {
			return 1 << i, true
		}
	}
	return 0, false
}

func (c OperationClaim) Valid() bool {
	_, ok := c.bit()
	return ok
}

// ParseOperationClaim accepts the canonical names case-insensitively.
func ParseOperationClaim(s string) (OperationClaim, error) {
	s = strings.TrimSpace(s)
	for _, known := range order {
		if strings.EqualFold(string(known), s) {
			return known, nil
		}
	}
	return "", ErrUnknownClaim
}

// ClaimSet is a bit set over the known claims.
type ClaimSet uint8

func NewClaimSet(claims ...OperationClaim) ClaimSet {
	var s ClaimSet
	for _, c := range claims {
		s = s.Add(c)
	}
	return s
}

func (s ClaimSet) Add(c OperationClaim) ClaimSet {
	b, ok := c.bit()
	if !ok {
		return s
	}
	return s | b
}

func (s ClaimSet) Has(c OperationClaim) bool {
	b, ok := c.bit()
	return ok && s&b != 0
}

// Intersects is the any-of test used by authorization.
func (s ClaimSet) Intersects(other ClaimSet) bool { return s&other != 0 }

func (s ClaimSet) IsEmpty() bool { return s == 0 }

func (s ClaimSet) Claims() []OperationClaim {
	out := make([]OperationClaim, 0, len(order))
	for _, c := range order {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Strings returns the claim names sorted, for token payloads.
func (s ClaimSet) Strings() []string {
	claims := s.Claims()
	out := make([]string, len(claims))
	for i, c := range claims {
		out[i] = string(c)
	}
	sort.Strings(out)
	return out
}

type UserOperationClaim struct {
	Entity
	UserID UserID         `gorm:"not null;uniqueIndex:ux_user_operation_claims" db:"user_id"`
	Claim  OperationClaim `gorm:"type:text;not null;uniqueIndex:ux_user_operation_claims" db:"claim"`
}

func (UserOperationClaim) TableName() string { return "user_operation_claims" }
