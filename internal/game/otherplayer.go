package game

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mfbot/hofwatch/internal/tracker"
)

// Field offsets inside the slash-delimited player info blob. The layout is
// fixed by the game client protocol.
const (
	idxLevel      = 2
	idxExperience = 3
	idxHonor      = 10

	idxAttributeBase  = 30
	idxAttributeBonus = 35
	attributeCount    = 5

	idxEquipmentStart  = 48
	equipmentSlotCount = 10
	equipmentSlotSize  = 12

	slotOffTyp   = 0
	slotOffModel = 1
	slotOffColor = 2
	slotOffClass = 3

	minInfoFields = idxEquipmentStart + equipmentSlotCount*equipmentSlotSize
)

// CosmeticModelCutoff is the first model id of the cosmetic/placeholder
// range. Slots at or above it are counted as equipped but excluded from the
// ident set.
const CosmeticModelCutoff = 100

// ParsedPlayer is the digest of one player info blob used by ingestion.
type ParsedPlayer struct {
	Level       int
	Experience  int64
	Honor       int64
	Attributes  int64   // sum of all base + bonus attribute values
	EquipCount  int     // non-empty equipment slots, cosmetics included
	EquipIdents []int32 // deduplicated, ascending, real slots only
}

// ParseOtherPlayer decodes the slash-delimited integer blob of one player
// report. Structural failures are reported as tracker.ErrInvalidPlayer.
func ParseOtherPlayer(info string) (ParsedPlayer, error) {
	fields := strings.Split(info, "/")
	if len(fields) < minInfoFields {
		return ParsedPlayer{}, fmt.Errorf("%w: %d fields, need %d", tracker.ErrInvalidPlayer, len(fields), minInfoFields)
	}
	values := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return ParsedPlayer{}, fmt.Errorf("%w: field %d: %v", tracker.ErrInvalidPlayer, i, err)
		}
		values[i] = v
	}

	p := ParsedPlayer{
		Level:      int(values[idxLevel]),
		Experience: values[idxExperience],
		Honor:      values[idxHonor],
	}
	if p.Level < 1 {
		return ParsedPlayer{}, fmt.Errorf("%w: level %d", tracker.ErrInvalidPlayer, p.Level)
	}
	for i := range attributeCount {
		p.Attributes += values[idxAttributeBase+i] + values[idxAttributeBonus+i]
	}

	seen := make(map[int32]struct{}, equipmentSlotCount)
	for slot := range equipmentSlotCount {
		base := idxEquipmentStart + slot*equipmentSlotSize
		typ := values[base+slotOffTyp]
		if typ == 0 {
			// empty slot
			continue
		}
		p.EquipCount++
		model := values[base+slotOffModel]
		if model >= CosmeticModelCutoff {
			continue
		}
		ident := EquipmentIdent{
			ModelID: uint16(model),
			Color:   uint8(values[base+slotOffColor]),
			Typ:     uint8(typ),
		}
		if raw := values[base+slotOffClass]; raw > 0 {
			cls := uint8(raw - 1)
			ident.Class = &cls
		}
		seen[PackIdent(ident)] = struct{}{}
	}
	p.EquipIdents = make([]int32, 0, len(seen))
	for ident := range seen {
		p.EquipIdents = append(p.EquipIdents, ident)
	}
	slices.Sort(p.EquipIdents)
	return p, nil
}
