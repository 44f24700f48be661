package models

import (
	"github.com/shopspring/decimal"
)

// LoadProfileRecord is one (mnemonic, feeder) row of the load profile snapshot
type LoadProfileRecord struct {
	Mnemonic  string          `json:"mnemonic"`
	FeederID  string          `json:"feeder_id"`
	PloadMW   decimal.Decimal `json:"pload_mw"`
	QloadMvar decimal.Decimal `json:"qload_mvar"`
	RawZone   string          `json:"raw_zone,omitempty"`
}

// DeliveryPointAssignment is one delivery point of a scheme assignment sheet.
// Stages is keyed by review-year label; a missing year means "not assigned that year".
type DeliveryPointAssignment struct {
	Scheme       Scheme           `json:"scheme"`
	AssignmentID string           `json:"assignment_id,omitempty"`
	LocalTripID  string           `json:"local_trip_id,omitempty"`
	GroupTripID  string           `json:"group_trip_id,omitempty"`
	FeederID     string           `json:"feeder_id,omitempty"`
	BreakerID    string           `json:"breaker_id,omitempty"`
	Mnemonic     string           `json:"mnemonic,omitempty"`
	KV           string           `json:"kv,omitempty"`
	Stages       map[string]Stage `json:"stages,omitempty"`
}

// ResolvedID returns the join key of the delivery point: the assignment id, else the
// group trip id, else the local trip id.
func (a DeliveryPointAssignment) ResolvedID() string {
	switch {
	case a.AssignmentID != "":
		return a.AssignmentID
	case a.GroupTripID != "":
		return a.GroupTripID
	default:
		return a.LocalTripID
	}
}

// RelayVariant distinguishes incomer relays from pocket (HVCB) relays
type RelayVariant string

const (
	RelayIncomer RelayVariant = "incomer"
	RelayPocket  RelayVariant = "pocket"
)

// RelayLocation is one installed relay
type RelayLocation struct {
	Variant      RelayVariant `json:"variant"`
	Mnemonic     string       `json:"mnemonic"`
	KV           string       `json:"kv,omitempty"`
	BreakerID    string       `json:"breaker_id,omitempty"`
	FeederID     string       `json:"feeder_id,omitempty"`
	AssignmentID string       `json:"assignment_id,omitempty"`
	LocalTripID  string       `json:"local_trip_id,omitempty"`
	GroupTripID  string       `json:"group_trip_id,omitempty"`
}

// ResolvedID applies the same fallback as DeliveryPointAssignment.ResolvedID
func (r RelayLocation) ResolvedID() string {
	switch {
	case r.AssignmentID != "":
		return r.AssignmentID
	case r.GroupTripID != "":
		return r.GroupTripID
	default:
		return r.LocalTripID
	}
}

// SubstationMetadata is the static per-mnemonic reference
type SubstationMetadata struct {
	Mnemonic       string `json:"mnemonic"`
	SubstationName string `json:"substation_name,omitempty"`
	State          string `json:"state,omitempty"`
	GMSubzone      string `json:"gm_subzone,omitempty"`
	Coordinate     string `json:"coordinate,omitempty"`
}

// Critical list sources
const (
	CriticalSourceDN  = "dn"
	CriticalSourceGSO = "gso"
)

// CriticalLoadFlag marks a delivery point as critical load
type CriticalLoadFlag struct {
	LocalTripID string `json:"local_trip_id"`
	Source      string `json:"critical_list_source,omitempty"`
	Remark      string `json:"remark,omitempty"`
}

// ExcludedDeliveryPoint is a delivery point administratively excluded from shedding
type ExcludedDeliveryPoint struct {
	LocalTripID string `json:"local_trip_id"`
	Remark      string `json:"remark,omitempty"`
}
