package refdata

import (
	"strings"

	"github.com/gridops/loadshed-review/models"
	"github.com/shopspring/decimal"
)

// DecodeLoadProfile converts a load_profile table. Rows without a mnemonic are skipped;
// unparseable power values count as zero.
func DecodeLoadProfile(t *Table) ([]models.LoadProfileRecord, error) {
	if t.Len() == 0 {
		return nil, ErrMissingInput
	}
	for _, col := range []string{ColMnemonic, ColFeederID, ColPloadMW} {
		if !t.Has(col) {
			return nil, schemaMismatch(t.Kind, col)
		}
	}

	out := make([]models.LoadProfileRecord, 0, t.Len())
	for i := range t.Rows {
		mnemonic := t.Get(i, ColMnemonic)
		if mnemonic == "" {
			continue
		}
		out = append(out, models.LoadProfileRecord{
			Mnemonic:  mnemonic,
			FeederID:  t.Get(i, ColFeederID),
			PloadMW:   parseDecimal(t.Get(i, ColPloadMW)),
			QloadMvar: parseDecimal(t.Get(i, ColQloadMvar)),
			RawZone:   t.Get(i, ColZone),
		})
	}
	return out, nil
}

// DecodeAssignments converts a scheme assignment table. Each review-year column
// becomes a stage entry; null stages are omitted.
func DecodeAssignments(t *Table, scheme models.Scheme) ([]models.DeliveryPointAssignment, error) {
	if t.Len() == 0 {
		return nil, ErrMissingInput
	}
	if !t.Has(ColAssignmentID) && !t.Has(ColGroupTripID) && !t.Has(ColLocalTripID) {
		return nil, schemaMismatch(t.Kind, ColAssignmentID, ColGroupTripID, ColLocalTripID)
	}
	years := t.YearColumns()
	if len(years) == 0 {
		return nil, schemaMismatch(t.Kind, "a review-year column")
	}

	out := make([]models.DeliveryPointAssignment, 0, t.Len())
	for i := range t.Rows {
		a := models.DeliveryPointAssignment{
			Scheme:       scheme,
			AssignmentID: t.Get(i, ColAssignmentID),
			LocalTripID:  t.Get(i, ColLocalTripID),
			GroupTripID:  t.Get(i, ColGroupTripID),
			FeederID:     t.Get(i, ColFeederID),
			BreakerID:    t.Get(i, ColBreakerID),
			Mnemonic:     t.Get(i, ColMnemonic),
			KV:           t.Get(i, ColKV),
		}
		if a.ResolvedID() == "" {
			continue
		}
		for _, year := range years {
			if stage := models.ParseStage(t.Get(i, year)); !stage.IsNull() {
				if a.Stages == nil {
					a.Stages = make(map[string]models.Stage, len(years))
				}
				a.Stages[year] = stage
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// DecodeRelays converts a relay location table of the given variant
func DecodeRelays(t *Table, variant models.RelayVariant) ([]models.RelayLocation, error) {
	if t.Len() == 0 {
		return nil, ErrMissingInput
	}
	if !t.Has(ColMnemonic) {
		return nil, schemaMismatch(t.Kind, ColMnemonic)
	}
	if !t.Has(ColAssignmentID) && !t.Has(ColGroupTripID) && !t.Has(ColLocalTripID) {
		return nil, schemaMismatch(t.Kind, ColAssignmentID, ColGroupTripID, ColLocalTripID)
	}

	out := make([]models.RelayLocation, 0, t.Len())
	for i := range t.Rows {
		r := models.RelayLocation{
			Variant:      variant,
			Mnemonic:     t.Get(i, ColMnemonic),
			KV:           t.Get(i, ColKV),
			BreakerID:    t.Get(i, ColBreakerID),
			FeederID:     t.Get(i, ColFeederID),
			AssignmentID: t.Get(i, ColAssignmentID),
			LocalTripID:  t.Get(i, ColLocalTripID),
			GroupTripID:  t.Get(i, ColGroupTripID),
		}
		if r.ResolvedID() == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// DecodeSubstations converts the substation master list. Later rows never override
// an earlier mnemonic.
func DecodeSubstations(t *Table) ([]models.SubstationMetadata, error) {
	if t.Len() == 0 {
		return nil, ErrMissingInput
	}
	if !t.Has(ColMnemonic) {
		return nil, schemaMismatch(t.Kind, ColMnemonic)
	}

	seen := make(map[string]bool, t.Len())
	out := make([]models.SubstationMetadata, 0, t.Len())
	for i := range t.Rows {
		mnemonic := t.Get(i, ColMnemonic)
		if mnemonic == "" || seen[mnemonic] {
			continue
		}
		seen[mnemonic] = true
		out = append(out, models.SubstationMetadata{
			Mnemonic:       mnemonic,
			SubstationName: t.Get(i, ColSubstationName),
			State:          t.Get(i, ColState),
			GMSubzone:      t.Get(i, ColGMSubzone),
			Coordinate:     t.Get(i, ColCoordinate),
		})
	}
	return out, nil
}

// DecodeCriticalFlags converts the critical load flag list
func DecodeCriticalFlags(t *Table) ([]models.CriticalLoadFlag, error) {
	if t.Len() == 0 {
		return nil, ErrMissingInput
	}
	if !t.Has(ColLocalTripID) {
		return nil, schemaMismatch(t.Kind, ColLocalTripID)
	}

	out := make([]models.CriticalLoadFlag, 0, t.Len())
	for i := range t.Rows {
		id := t.Get(i, ColLocalTripID)
		if id == "" {
			continue
		}
		out = append(out, models.CriticalLoadFlag{
			LocalTripID: id,
			Source:      strings.ToLower(t.Get(i, ColCriticalSource)),
			Remark:      t.Get(i, ColRemark),
		})
	}
	return out, nil
}

// DecodeExcluded converts the dn excluded list
func DecodeExcluded(t *Table) ([]models.ExcludedDeliveryPoint, error) {
	if t.Len() == 0 {
		return nil, ErrMissingInput
	}
	if !t.Has(ColLocalTripID) {
		return nil, schemaMismatch(t.Kind, ColLocalTripID)
	}

	out := make([]models.ExcludedDeliveryPoint, 0, t.Len())
	for i := range t.Rows {
		id := t.Get(i, ColLocalTripID)
		if id == "" {
			continue
		}
		out = append(out, models.ExcludedDeliveryPoint{LocalTripID: id, Remark: t.Get(i, ColRemark)})
	}
	return out, nil
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}
