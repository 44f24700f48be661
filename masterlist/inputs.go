package masterlist

import (
	"errors"
	"fmt"

	"github.com/gridops/loadshed-review/models"
	"github.com/gridops/loadshed-review/refdata"
)

// FromTables decodes loaded reference tables into build inputs. A table that fails to
// decode is skipped and its error returned alongside the partial inputs.
func FromTables(tables map[refdata.Kind]*refdata.Table) (Inputs, []error) {
	in := Inputs{Schemes: make(map[models.Scheme][]models.DeliveryPointAssignment)}
	var errs []error

	skip := func(kind refdata.Kind, err error) {
		if errors.Is(err, refdata.ErrMissingInput) {
			return
		}
		errs = append(errs, fmt.Errorf("%s skipped: %w", kind, err))
	}

	if t, ok := tables[refdata.KindLoadProfile]; ok {
		records, err := refdata.DecodeLoadProfile(t)
		if err != nil {
			skip(refdata.KindLoadProfile, err)
		}
		in.LoadProfile = records
	}

	for _, scheme := range models.Schemes {
		kind := refdata.SchemeKind(scheme)
		t, ok := tables[kind]
		if !ok {
			continue
		}
		rows, err := refdata.DecodeAssignments(t, scheme)
		if err != nil {
			skip(kind, err)
			continue
		}
		in.Schemes[scheme] = rows
	}

	relayKinds := []struct {
		kind    refdata.Kind
		variant models.RelayVariant
	}{
		{kind: refdata.KindRelayIncomer, variant: models.RelayIncomer},
		{kind: refdata.KindRelayPocket, variant: models.RelayPocket},
	}
	for _, rk := range relayKinds {
		t, ok := tables[rk.kind]
		if !ok {
			continue
		}
		relays, err := refdata.DecodeRelays(t, rk.variant)
		if err != nil {
			skip(rk.kind, err)
			continue
		}
		in.Relays = append(in.Relays, relays...)
	}

	if t, ok := tables[refdata.KindSubstations]; ok {
		subs, err := refdata.DecodeSubstations(t)
		if err != nil {
			skip(refdata.KindSubstations, err)
		}
		in.Substations = subs
	}
	if t, ok := tables[refdata.KindCriticalLoad]; ok {
		flags, err := refdata.DecodeCriticalFlags(t)
		if err != nil {
			skip(refdata.KindCriticalLoad, err)
		}
		in.Critical = flags
	}
	if t, ok := tables[refdata.KindExcluded]; ok {
		excluded, err := refdata.DecodeExcluded(t)
		if err != nil {
			skip(refdata.KindExcluded, err)
		}
		in.Excluded = excluded
	}

	return in, errs
}
