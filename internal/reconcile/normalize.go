package reconcile

import (
	"strings"

	"github.com/summit-goods/commission-cli/internal/model"
)

// Account types recognized by the commission pipeline.
const (
	TypeDistributor = "Distributor"
	TypeWholesale   = "Wholesale"
	TypeRetail      = "Retail"
)

// CRM multi-select option ids for the account type field.
var accountTypeOptions = map[int64]string{
	1981470: TypeDistributor,
	2063862: TypeWholesale,
	2066840: TypeRetail,
}

// protectedFields are owned by the commission workflow and never
// overwritten by a CRM sync.
var protectedFields = map[string]bool{
	model.FieldTransferStatus:   true,
	model.FieldOriginalOwner:    true,
	model.FieldFishbowlUsername: true,
}

// NormalizeAccountType maps any wire shape of the CRM account type
// field to one of the three recognized labels. The mapping is total:
// anything unrecognized, including an absent value, comes back Retail.
func NormalizeAccountType(raw model.RawOption) string {
	switch raw.Kind {
	case model.OptionList:
		if len(raw.List) == 0 {
			return TypeRetail
		}
		return NormalizeAccountType(raw.List[0])
	case model.OptionID:
		if t, ok := accountTypeOptions[raw.ID]; ok {
			return t
		}
		return TypeRetail
	case model.OptionNamed:
		if raw.Name != "" {
			return normalizeTypeString(raw.Name)
		}
		if t, ok := accountTypeOptions[raw.ID]; ok {
			return t
		}
		return TypeRetail
	case model.OptionString:
		return normalizeTypeString(raw.Str)
	default:
		return TypeRetail
	}
}

func normalizeTypeString(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	if strings.Contains(t, "distributor") || strings.Contains(t, "distribution") {
		return TypeDistributor
	}
	if strings.Contains(t, "wholesale") {
		return TypeWholesale
	}
	return TypeRetail
}

// changed compares two field values the way the sync diff does: both
// sides trimmed, nil/absent equal to the empty string.
func changed(oldVal, newVal string) bool {
	return strings.TrimSpace(oldVal) != strings.TrimSpace(newVal)
}

// stripCommas normalizes a numeric account id that the CRM may have
// stored with thousands separators.
func stripCommas(s string) string {
	return strings.ReplaceAll(s, ",", "")
}
