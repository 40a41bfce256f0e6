package oicp

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidOperatorID = errors.New("invalid operator id")
	ErrInvalidProviderID = errors.New("invalid provider id")
	ErrInvalidEVSEID     = errors.New("invalid evse id")
)

var (
	operatorAlpha   = regexp.MustCompile(`^([A-Za-z]{2})\*([A-Za-z0-9]{3})$`)
	operatorNumeric = regexp.MustCompile(`^\+?([0-9]{1,3})\*([0-9]{3})$`)
	providerPattern = regexp.MustCompile(`^([A-Za-z]{2})[*-]([A-Za-z0-9]{3})$`)
	// without a separator only the uppercase form is an id; "bogus" is not
	compactPattern  = regexp.MustCompile(`^([A-Z]{2})([A-Z0-9]{3})$`)
	evseAlpha       = regexp.MustCompile(`^([A-Za-z]{2}\*?[A-Za-z0-9]{3})\*?[Ee]([A-Za-z0-9*]{1,30})$`)
	evseNumeric     = regexp.MustCompile(`^(\+?[0-9]{1,3}\*[0-9]{3})\*([0-9*]{1,32})$`)
)

// OperatorID identifies a charge point operator, canonical form "DE*GEF".
type OperatorID struct {
	value string
}

func ParseOperatorID(s string) (OperatorID, error) {
	s = strings.TrimSpace(s)
	if m := operatorAlpha.FindStringSubmatch(s); m != nil {
		return OperatorID{value: strings.ToUpper(m[1]) + "*" + strings.ToUpper(m[2])}, nil
	}
	if m := compactPattern.FindStringSubmatch(s); m != nil {
		return OperatorID{value: m[1] + "*" + m[2]}, nil
	}
	if m := operatorNumeric.FindStringSubmatch(s); m != nil {
		return OperatorID{value: "+" + m[1] + "*" + m[2]}, nil
	}
	return OperatorID{}, fmt.Errorf("%w: %q", ErrInvalidOperatorID, s)
}

// MustOperatorID is ParseOperatorID for constants and tests.
func MustOperatorID(s string) OperatorID {
	id, err := ParseOperatorID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id OperatorID) String() string {
	return id.value
}

func (id OperatorID) IsZero() bool {
	return id.value == ""
}

func (id OperatorID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

func (id *OperatorID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = OperatorID{}
		return nil
	}
	parsed, err := ParseOperatorID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ProviderID identifies an e-mobility provider, canonical form "DE-GDF".
type ProviderID struct {
	value string
}

func ParseProviderID(s string) (ProviderID, error) {
	s = strings.TrimSpace(s)
	if m := providerPattern.FindStringSubmatch(s); m != nil {
		return ProviderID{value: strings.ToUpper(m[1]) + "-" + strings.ToUpper(m[2])}, nil
	}
	if m := compactPattern.FindStringSubmatch(s); m != nil {
		return ProviderID{value: m[1] + "-" + m[2]}, nil
	}
	return ProviderID{}, fmt.Errorf("%w: %q", ErrInvalidProviderID, s)
}

func MustProviderID(s string) ProviderID {
	id, err := ParseProviderID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ProviderID) String() string {
	return id.value
}

func (id ProviderID) IsZero() bool {
	return id.value == ""
}

func (id ProviderID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

func (id *ProviderID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = ProviderID{}
		return nil
	}
	parsed, err := ParseProviderID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// EVSEID identifies a single charging point, e.g. "DE*GEF*E123456*1".
// The operator part is kept parsed so routing never re-parses the string.
type EVSEID struct {
	operator OperatorID
	suffix   string
	numeric  bool
}

func ParseEVSEID(s string) (EVSEID, error) {
	s = strings.TrimSpace(s)
	if m := evseAlpha.FindStringSubmatch(s); m != nil {
		operator, err := ParseOperatorID(m[1])
		if err != nil {
			return EVSEID{}, fmt.Errorf("%w: %q", ErrInvalidEVSEID, s)
		}
		return EVSEID{operator: operator, suffix: strings.ToUpper(m[2])}, nil
	}
	if m := evseNumeric.FindStringSubmatch(s); m != nil {
		operator, err := ParseOperatorID(m[1])
		if err != nil {
			return EVSEID{}, fmt.Errorf("%w: %q", ErrInvalidEVSEID, s)
		}
		return EVSEID{operator: operator, suffix: m[2], numeric: true}, nil
	}
	return EVSEID{}, fmt.Errorf("%w: %q", ErrInvalidEVSEID, s)
}

func MustEVSEID(s string) EVSEID {
	id, err := ParseEVSEID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// OperatorID returns the operator owning the EVSE.
func (id EVSEID) OperatorID() OperatorID {
	return id.operator
}

func (id EVSEID) String() string {
	if id.IsZero() {
		return ""
	}
	if id.numeric {
		return id.operator.String() + "*" + id.suffix
	}
	return id.operator.String() + "*E" + id.suffix
}

func (id EVSEID) IsZero() bool {
	return id.operator.IsZero()
}

func (id EVSEID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *EVSEID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = EVSEID{}
		return nil
	}
	parsed, err := ParseEVSEID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
