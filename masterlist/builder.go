// Package masterlist joins the reference tables into the per-delivery-point master list
package masterlist

import (
	"github.com/gridops/loadshed-review/models"
	"github.com/gridops/loadshed-review/zoning"
	"github.com/shopspring/decimal"
)

// Inputs are the decoded reference tables feeding one build
type Inputs struct {
	Schemes     map[models.Scheme][]models.DeliveryPointAssignment
	LoadProfile []models.LoadProfileRecord
	Relays      []models.RelayLocation
	Substations []models.SubstationMetadata
	Critical    []models.CriticalLoadFlag
	Excluded    []models.ExcludedDeliveryPoint
}

// Ready reports whether the required inputs (load profile and one scheme table) are present
func (in Inputs) Ready() bool {
	if len(in.LoadProfile) == 0 {
		return false
	}
	for _, rows := range in.Schemes {
		if len(rows) > 0 {
			return true
		}
	}
	return false
}

// MasterList is the immutable result of a build
type MasterList struct {
	Rows      []*models.MasterListRow
	StageKeys []models.StageKey
}

// Empty reports whether the build produced no rows
func (m *MasterList) Empty() bool {
	return m == nil || len(m.Rows) == 0
}

// AssignmentCount returns the number of distinct assignment ids
func (m *MasterList) AssignmentCount() int {
	if m == nil {
		return 0
	}
	seen := make(map[string]struct{}, len(m.Rows))
	for _, r := range m.Rows {
		seen[r.AssignmentID] = struct{}{}
	}
	return len(seen)
}

// Builder joins reference tables into a master list
type Builder struct {
	mapper *zoning.Mapper
}

// NewBuilder creates a builder. A nil mapper uses the built-in zone tables.
func NewBuilder(mapper *zoning.Mapper) *Builder {
	if mapper == nil {
		mapper = zoning.Default()
	}
	return &Builder{mapper: mapper}
}

// Build runs a build with the built-in zone tables
func Build(in Inputs) *MasterList {
	return NewBuilder(nil).Build(in)
}

type assignment struct {
	id     string
	stages map[models.StageKey]models.Stage
	points []*deliveryPoint
	keys   map[dpKey]*deliveryPoint
}

type deliveryPoint struct {
	localTripID string
	mnemonic    string
	feederID    string
	breakerID   string
	kv          string
}

type dpKey struct {
	mnemonic string
	feederID string
}

type loadKey struct {
	mnemonic string
	feederID string
}

// Build joins the inputs. Missing required inputs yield an empty master list.
func (b *Builder) Build(in Inputs) *MasterList {
	if !in.Ready() {
		return &MasterList{}
	}

	order, assignments := joinSchemes(in.Schemes)
	relays := newRelayIndex(in.Relays)

	for _, scheme := range models.Schemes {
		for _, dp := range in.Schemes[scheme] {
			a, ok := assignments[dp.ResolvedID()]
			if !ok {
				continue
			}
			point := &deliveryPoint{
				localTripID: dp.LocalTripID,
				mnemonic:    dp.Mnemonic,
				feederID:    dp.FeederID,
				breakerID:   dp.BreakerID,
				kv:          dp.KV,
			}
			relays.backfill(a.id, point)
			a.add(point)
		}
	}
	for _, r := range in.Relays {
		a, ok := assignments[r.ResolvedID()]
		if !ok {
			continue
		}
		a.add(&deliveryPoint{
			localTripID: r.LocalTripID,
			mnemonic:    r.Mnemonic,
			feederID:    r.FeederID,
			breakerID:   r.BreakerID,
			kv:          r.KV,
		})
	}

	load := make(map[loadKey]decimal.Decimal, len(in.LoadProfile))
	rawZoneByKey := make(map[loadKey]string, len(in.LoadProfile))
	rawZoneByMnemonic := make(map[string]string, len(in.LoadProfile))
	for _, rec := range in.LoadProfile {
		k := loadKey{mnemonic: rec.Mnemonic, feederID: rec.FeederID}
		load[k] = load[k].Add(rec.PloadMW)
		if rec.RawZone == "" {
			continue
		}
		if _, ok := rawZoneByKey[k]; !ok {
			rawZoneByKey[k] = rec.RawZone
		}
		if _, ok := rawZoneByMnemonic[rec.Mnemonic]; !ok {
			rawZoneByMnemonic[rec.Mnemonic] = rec.RawZone
		}
	}

	substations := make(map[string]models.SubstationMetadata, len(in.Substations))
	for _, s := range in.Substations {
		if _, ok := substations[s.Mnemonic]; !ok {
			substations[s.Mnemonic] = s
		}
	}
	critical := make(map[string]models.CriticalLoadFlag, len(in.Critical))
	for _, c := range in.Critical {
		if _, ok := critical[c.LocalTripID]; !ok {
			critical[c.LocalTripID] = c
		}
	}
	excluded := make(map[string]models.ExcludedDeliveryPoint, len(in.Excluded))
	for _, e := range in.Excluded {
		if _, ok := excluded[e.LocalTripID]; !ok {
			excluded[e.LocalTripID] = e
		}
	}

	keySet := make(map[models.StageKey]struct{})
	rows := make([]*models.MasterListRow, 0, len(order))
	for _, id := range order {
		a := assignments[id]
		dpType := ClassifyDPType(id)
		for k := range a.stages {
			keySet[k] = struct{}{}
		}

		for _, p := range a.points {
			row := &models.MasterListRow{
				AssignmentID: id,
				LocalTripID:  p.localTripID,
				Mnemonic:     p.mnemonic,
				KV:           p.kv,
				BreakerID:    p.breakerID,
				FeederID:     p.feederID,
				DPType:       dpType,
				PloadMW:      decimal.Zero,
				Stages:       cloneStages(a.stages),
			}

			lk := loadKey{mnemonic: p.mnemonic, feederID: p.feederID}
			if mw, ok := load[lk]; ok {
				row.PloadMW = mw
			}

			meta, hasMeta := substations[p.mnemonic]
			if hasMeta {
				row.SubstationName = meta.SubstationName
				row.State = meta.State
				row.Subzone = meta.GMSubzone
			}
			row.Zone = b.resolveZone(rawZoneByKey[lk], rawZoneByMnemonic[p.mnemonic], meta)

			if p.localTripID != "" {
				if c, ok := critical[p.localTripID]; ok {
					row.Critical = true
					row.CriticalSource = c.Source
					row.CriticalRemark = c.Remark
				}
				if e, ok := excluded[p.localTripID]; ok {
					row.Excluded = true
					row.ExcludedRemark = e.Remark
				}
			}
			rows = append(rows, row)
		}
	}

	keys := make([]models.StageKey, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	models.SortStageKeys(keys)

	return &MasterList{Rows: rows, StageKeys: keys}
}

// resolveZone prefers the load profile's own zone label, then the substation state,
// then the maintenance subzone
func (b *Builder) resolveZone(rawByKey, rawByMnemonic string, meta models.SubstationMetadata) models.Zone {
	for _, raw := range []string{rawByKey, rawByMnemonic} {
		if zone := b.mapper.ClassifyZone(raw); zone != models.ZoneNone {
			return zone
		}
	}
	if zone := b.mapper.ClassifyZone(meta.State); zone != models.ZoneNone {
		return zone
	}
	return b.mapper.ClassifySubzone(meta.GMSubzone)
}

// joinSchemes outer-joins the scheme tables on the resolved assignment id.
// Stage values are keyed by (scheme, year); the first non-null value per key wins.
func joinSchemes(schemes map[models.Scheme][]models.DeliveryPointAssignment) ([]string, map[string]*assignment) {
	var order []string
	assignments := make(map[string]*assignment)

	for _, scheme := range models.Schemes {
		for _, dp := range schemes[scheme] {
			id := dp.ResolvedID()
			if id == "" {
				continue
			}
			a, ok := assignments[id]
			if !ok {
				a = &assignment{
					id:     id,
					stages: make(map[models.StageKey]models.Stage),
					keys:   make(map[dpKey]*deliveryPoint),
				}
				assignments[id] = a
				order = append(order, id)
			}
			for year, stage := range dp.Stages {
				if stage.IsNull() {
					continue
				}
				key := models.StageKey{Scheme: scheme, Year: year}
				if _, exists := a.stages[key]; !exists {
					a.stages[key] = stage
				}
			}
		}
	}
	return order, assignments
}

// add merges a delivery point into the assignment, deduplicating on (mnemonic, feeder).
// Fields missing on the stored point are filled from the newcomer.
func (a *assignment) add(p *deliveryPoint) {
	k := dpKey{mnemonic: p.mnemonic, feederID: p.feederID}
	existing, ok := a.keys[k]
	if !ok {
		// a bare placeholder (no mnemonic, no feeder) is replaced by the first located point
		if placeholder, has := a.keys[dpKey{}]; has && k != (dpKey{}) {
			delete(a.keys, dpKey{})
			fillMissing(p, placeholder)
			*placeholder = *p
			a.keys[k] = placeholder
			return
		}
		if k == (dpKey{}) && len(a.points) > 0 {
			return
		}
		a.keys[k] = p
		a.points = append(a.points, p)
		return
	}
	fillMissing(existing, p)
}

func fillMissing(dst, src *deliveryPoint) {
	if dst.localTripID == "" {
		dst.localTripID = src.localTripID
	}
	if dst.breakerID == "" {
		dst.breakerID = src.breakerID
	}
	if dst.kv == "" {
		dst.kv = src.kv
	}
}

func cloneStages(src map[models.StageKey]models.Stage) map[models.StageKey]models.Stage {
	out := make(map[models.StageKey]models.Stage, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// relayIndex looks relays up by (assignment, feeder) and by assignment alone
type relayIndex struct {
	byFeeder map[[2]string]models.RelayLocation
	byID     map[string]models.RelayLocation
}

func newRelayIndex(relays []models.RelayLocation) *relayIndex {
	idx := &relayIndex{
		byFeeder: make(map[[2]string]models.RelayLocation, len(relays)),
		byID:     make(map[string]models.RelayLocation, len(relays)),
	}
	for _, r := range relays {
		id := r.ResolvedID()
		if r.FeederID != "" {
			k := [2]string{id, r.FeederID}
			if _, ok := idx.byFeeder[k]; !ok {
				idx.byFeeder[k] = r
			}
		}
		if _, ok := idx.byID[id]; !ok {
			idx.byID[id] = r
		}
	}
	return idx
}

// backfill copies relay metadata onto a scheme delivery point that lacks it
func (idx *relayIndex) backfill(id string, p *deliveryPoint) {
	if p.mnemonic != "" && p.kv != "" && p.breakerID != "" {
		return
	}
	r, ok := idx.byFeeder[[2]string{id, p.feederID}]
	if !ok {
		if p.feederID != "" && p.mnemonic != "" {
			return
		}
		r, ok = idx.byID[id]
		if !ok {
			return
		}
	}
	if p.mnemonic == "" {
		p.mnemonic = r.Mnemonic
		if p.feederID == "" {
			p.feederID = r.FeederID
		}
	}
	if p.kv == "" {
		p.kv = r.KV
	}
	if p.breakerID == "" {
		p.breakerID = r.BreakerID
	}
	if p.localTripID == "" {
		p.localTripID = r.LocalTripID
	}
}
