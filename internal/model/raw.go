package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// OptionKind identifies the wire shape of a multi-select CRM field.
// Copper serializes the same custom field as a plain string, an array,
// a numeric option id, or an {id, name} object depending on the field
// definition and the client that wrote it.
type OptionKind int

const (
	OptionEmpty OptionKind = iota
	OptionString
	OptionList
	OptionID
	OptionNamed
)

// RawOption is the closed tagged-variant decoding of a multi-shape CRM
// field value. Exactly one of the payload fields is meaningful for a
// given Kind.
type RawOption struct {
	Kind OptionKind
	Str  string      // OptionString
	List []RawOption // OptionList
	ID   int64       // OptionID, OptionNamed
	Name string      // OptionNamed
}

// StringOption returns a RawOption holding a plain string value.
func StringOption(s string) RawOption {
	return RawOption{Kind: OptionString, Str: s}
}

// IDOption returns a RawOption holding a numeric option id.
func IDOption(id int64) RawOption {
	return RawOption{Kind: OptionID, ID: id}
}

// IsZero reports whether the value counts as "absent" for merge
// purposes. Matches the source system's truthiness: empty string and
// zero ids are absent, but an empty list and a named option are not.
func (o RawOption) IsZero() bool {
	switch o.Kind {
	case OptionEmpty:
		return true
	case OptionString:
		return o.Str == ""
	case OptionID:
		return o.ID == 0
	default:
		return false
	}
}

// UnmarshalJSON decodes any of the accepted wire shapes. Unrecognized
// shapes decode as OptionEmpty rather than failing, so one malformed
// company record cannot poison a whole collection load.
func (o *RawOption) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = RawOption{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode option string")
		}
		*o = RawOption{Kind: OptionString, Str: s}
		return nil

	case '[':
		var list []RawOption
		if err := json.Unmarshal(data, &list); err != nil {
			return eris.Wrap(err, "model: decode option list")
		}
		*o = RawOption{Kind: OptionList, List: list}
		return nil

	case '{':
		var obj struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return eris.Wrap(err, "model: decode option object")
		}
		*o = RawOption{Kind: OptionNamed, ID: obj.ID, Name: obj.Name}
		return nil

	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			*o = RawOption{}
			return nil
		}
		*o = RawOption{Kind: OptionID, ID: int64(n)}
		return nil
	}
}

// MarshalJSON re-emits the original wire shape.
func (o RawOption) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OptionString:
		return json.Marshal(o.Str)
	case OptionList:
		if o.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(o.List)
	case OptionID:
		return json.Marshal(o.ID)
	case OptionNamed:
		return json.Marshal(struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}{o.ID, o.Name})
	default:
		return []byte("null"), nil
	}
}

// FlagKind identifies the wire shape of a boolean-like CRM field.
type FlagKind int

const (
	FlagEmpty FlagKind = iota
	FlagBool
	FlagString
)

// RawFlag is the tagged-variant decoding of a checkbox-style CRM field,
// which arrives as a real boolean or as one of a few literal strings.
type RawFlag struct {
	Kind FlagKind
	Bool bool
	Str  string
}

// BoolFlag returns a RawFlag holding a boolean value.
func BoolFlag(b bool) RawFlag {
	return RawFlag{Kind: FlagBool, Bool: b}
}

// StringFlag returns a RawFlag holding a string value.
func StringFlag(s string) RawFlag {
	return RawFlag{Kind: FlagString, Str: s}
}

// IsSet reports whether the flag counts as checked. Accepted literal
// forms: boolean true, or exactly "checked", "true", or "Checked".
func (f RawFlag) IsSet() bool {
	switch f.Kind {
	case FlagBool:
		return f.Bool
	case FlagString:
		return f.Str == "checked" || f.Str == "true" || f.Str == "Checked"
	default:
		return false
	}
}

// UnmarshalJSON decodes a boolean or string flag. Other shapes decode
// as FlagEmpty (unchecked).
func (f *RawFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = RawFlag{}
		return nil
	}

	switch {
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode flag string")
		}
		*f = RawFlag{Kind: FlagString, Str: s}
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*f = RawFlag{Kind: FlagBool, Bool: data[0] == 't'}
	default:
		*f = RawFlag{}
	}
	return nil
}

// MarshalJSON re-emits the original wire shape.
func (f RawFlag) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FlagBool:
		return json.Marshal(f.Bool)
	case FlagString:
		return json.Marshal(f.Str)
	default:
		return []byte("null"), nil
	}
}
