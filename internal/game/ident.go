// Package game implements the external game's wire formats: the packed
// equipment identifier, the slash-delimited player info blob, the
// hall-of-fame listing format and the scrapbook payload.
package game

// EquipmentIdent identifies one equippable item.
type EquipmentIdent struct {
	ModelID uint16
	Color   uint8
	Typ     uint8  // item type, < 16
	Class   *uint8 // character class, < 15; nil for classless items
}

// PackIdent packs an ident into a single int32 so equipment sets can be
// stored and compared as plain integers.
//
// Bit layout, little end first: 0-15 model id, 16-23 color, 24-27 type,
// 28-31 class+1. Class zero in the packed form means "no class".
func PackIdent(id EquipmentIdent) int32 {
	v := uint32(id.ModelID)
	v |= uint32(id.Color) << 16
	v |= uint32(id.Typ&0x0f) << 24
	if id.Class != nil {
		v |= (uint32(*id.Class&0x0f) + 1) << 28
	}
	return int32(v)
}

// UnpackIdent is the inverse of PackIdent.
func UnpackIdent(packed int32) EquipmentIdent {
	v := uint32(packed)
	id := EquipmentIdent{
		ModelID: uint16(v & 0xffff),
		Color:   uint8(v >> 16),
		Typ:     uint8(v>>24) & 0x0f,
	}
	if cls := uint8(v>>28) & 0x0f; cls > 0 {
		cls--
		id.Class = &cls
	}
	return id
}
