package api

import (
	"bytes"
	"strconv"
	"strings"
)

// Query describes a single station search against the price feed.
type Query struct {
	Latitude   float64
	Longitude  float64
	DistanceKm float64
	// Fuel is the upstream fuel code (gasolio, benzina, gpl, metano).
	Fuel    string
	Results int
}

// RawStation is a single station record as returned by the price feed.
// Numeric fields may arrive as JSON numbers or locale-formatted strings.
type RawStation struct {
	ID          FlexString `json:"id"`
	Name        string     `json:"name"`
	Bandiera    string     `json:"bandiera"`
	Gestore     string     `json:"gestore"`
	Indirizzo   string     `json:"indirizzo"`
	Latitudine  FlexString `json:"latitudine"`
	Longitudine FlexString `json:"longitudine"`
	Prezzo      FlexString `json:"prezzo"`
	DtComu      string     `json:"dtComu"`
}

// Operator returns the brand field, falling back to the operator name.
func (r *RawStation) Operator() string {
	if r.Bandiera != "" {
		return r.Bandiera
	}
	return r.Gestore
}

// FlexString holds a JSON string or number as its textual form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(data)
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// Float parses the value as a decimal number, accepting a comma separator.
func (f FlexString) Float() (float64, error) {
	return ParseDecimal(string(f))
}

// ParseDecimal parses a latitude, longitude or price string (with comma or dot) to float64.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.Replace(s, ",", ".", 1)
	m, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	return m, nil
}
