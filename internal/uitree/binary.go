package uitree

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"fastbot/internal/geom"
)

// Magic is the compact binary format's 4-byte header (spec.md §6.1 B).
var Magic = [4]byte{0x46, 0x42, 0x00, 0x01}

const (
	flagCheckable     = 1 << 0
	flagChecked       = 1 << 1
	flagClickable     = 1 << 2
	flagEnabled       = 1 << 3
	flagFocusable     = 1 << 4
	flagFocused       = 1 << 5
	flagScrollable    = 1 << 6
	flagLongClickable = 1 << 7
	flagPassword      = 1 << 8
	flagSelected      = 1 << 9
)

const (
	tagText        = 0
	tagResourceID  = 1
	tagClass       = 2
	tagPackage     = 3
	tagContentDesc = 4
)

// DecodeBinary parses the compact binary snapshot format (spec.md §6.1 B).
func DecodeBinary(r io.Reader) (*Element, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %v", ErrParse, err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: bad magic %v", ErrParse, magic)
	}

	e, err := decodeNode(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return e, nil
}

func decodeNode(r io.Reader) (*Element, error) {
	e := NewElement()

	var bounds [4]int32
	for i := range bounds {
		if err := binary.Read(r, binary.LittleEndian, &bounds[i]); err != nil {
			return nil, err
		}
	}
	e.Bounds = geom.Rect{Left: bounds[0], Top: bounds[1], Right: bounds[2], Bottom: bounds[3]}

	var index int16
	if err := binary.Read(r, binary.LittleEndian, &index); err != nil {
		return nil, err
	}
	e.Index = int(index)

	var flags uint16
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return nil, err
	}
	e.Flags = Flags{
		Checkable:     flags&flagCheckable != 0,
		Checked:       flags&flagChecked != 0,
		Clickable:     flags&flagClickable != 0,
		Enabled:       flags&flagEnabled != 0,
		Focusable:     flags&flagFocusable != 0,
		Focused:       flags&flagFocused != 0,
		Scrollable:    flags&flagScrollable != 0,
		LongClickable: flags&flagLongClickable != 0,
		Password:      flags&flagPassword != 0,
		Selected:      flags&flagSelected != 0,
	}

	var numStrings uint8
	if err := binary.Read(r, binary.LittleEndian, &numStrings); err != nil {
		return nil, err
	}
	for i := uint8(0); i < numStrings; i++ {
		var tag uint8
		if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
			return nil, err
		}
		var length uint16
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, err
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		switch tag {
		case tagText:
			e.Text = string(buf)
		case tagResourceID:
			e.ResourceID = string(buf)
		case tagClass:
			e.Class = string(buf)
		case tagPackage:
			e.Package = string(buf)
		case tagContentDesc:
			e.ContentDesc = string(buf)
		}
	}

	var numChildren uint16
	if err := binary.Read(r, binary.LittleEndian, &numChildren); err != nil {
		return nil, err
	}
	for i := uint16(0); i < numChildren; i++ {
		child, err := decodeNode(r)
		if err != nil {
			return nil, err
		}
		e.AddChild(child)
	}

	return e, nil
}

// EncodeBinary serializes e to the compact binary format.
// DecodeBinary(EncodeBinary(e)) round-trips structurally (spec.md §8).
func EncodeBinary(e *Element) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	if err := encodeNode(&buf, e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeNode(buf *bytes.Buffer, e *Element) error {
	bounds := [4]int32{e.Bounds.Left, e.Bounds.Top, e.Bounds.Right, e.Bounds.Bottom}
	for _, v := range bounds {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(buf, binary.LittleEndian, int16(e.Index)); err != nil {
		return err
	}

	var flags uint16
	if e.Flags.Checkable {
		flags |= flagCheckable
	}
	if e.Flags.Checked {
		flags |= flagChecked
	}
	if e.Flags.Clickable {
		flags |= flagClickable
	}
	if e.Flags.Enabled {
		flags |= flagEnabled
	}
	if e.Flags.Focusable {
		flags |= flagFocusable
	}
	if e.Flags.Focused {
		flags |= flagFocused
	}
	if e.Flags.Scrollable {
		flags |= flagScrollable
	}
	if e.Flags.LongClickable {
		flags |= flagLongClickable
	}
	if e.Flags.Password {
		flags |= flagPassword
	}
	if e.Flags.Selected {
		flags |= flagSelected
	}
	if err := binary.Write(buf, binary.LittleEndian, flags); err != nil {
		return err
	}

	type strField struct {
		tag   uint8
		value string
	}
	var fields []strField
	if e.Text != "" {
		fields = append(fields, strField{tagText, e.Text})
	}
	if e.ResourceID != "" {
		fields = append(fields, strField{tagResourceID, e.ResourceID})
	}
	if e.Class != "" {
		fields = append(fields, strField{tagClass, e.Class})
	}
	if e.Package != "" {
		fields = append(fields, strField{tagPackage, e.Package})
	}
	if e.ContentDesc != "" {
		fields = append(fields, strField{tagContentDesc, e.ContentDesc})
	}

	if err := binary.Write(buf, binary.LittleEndian, uint8(len(fields))); err != nil {
		return err
	}
	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f.tag); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.LittleEndian, uint16(len(f.value))); err != nil {
			return err
		}
		buf.WriteString(f.value)
	}

	if err := binary.Write(buf, binary.LittleEndian, uint16(len(e.Children))); err != nil {
		return err
	}
	for _, c := range e.Children {
		if err := encodeNode(buf, c); err != nil {
			return err
		}
	}
	return nil
}
