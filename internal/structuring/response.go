package structuring

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"porttariff/internal/domain"
	"porttariff/internal/pattern"
)

// ErrUnparseableResponse is returned when a completion holds no JSON array of
// tariff objects.
var ErrUnparseableResponse = errors.New("llm response contains no parseable JSON array")

// tariffItemSchema is the contract every array element must satisfy before
// it is converted. Optional fields may be absent or null.
const tariffItemSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["chargeType", "amount", "currency", "unit"],
	"properties": {
		"chargeType":   {"type": "string", "pattern": "\\S"},
		"chargeName":   {"type": ["string", "null"]},
		"amount":       {"type": "number", "exclusiveMinimum": 0},
		"currency":     {"type": "string", "pattern": "\\S"},
		"unit":         {"type": "string", "pattern": "\\S"},
		"sizeRangeMin": {"type": ["integer", "null"], "minimum": 0},
		"sizeRangeMax": {"type": ["integer", "null"], "minimum": 0},
		"conditions":   {"type": ["array", "null"], "items": {"type": "string"}},
		"sourceText":   {"type": ["string", "null"]}
	}
}`

var itemSchema = compileItemSchema()

func compileItemSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tariff_item.json", strings.NewReader(tariffItemSchema)); err != nil {
		panic("structuring: add tariff item schema: " + err.Error())
	}
	return compiler.MustCompile("tariff_item.json")
}

// tariffItem is the typed form of an element that passed the schema.
type tariffItem struct {
	ChargeType   string      `json:"chargeType"`
	ChargeName   string      `json:"chargeName"`
	Amount       json.Number `json:"amount"`
	Currency     string      `json:"currency"`
	Unit         string      `json:"unit"`
	SizeRangeMin *int64      `json:"sizeRangeMin"`
	SizeRangeMax *int64      `json:"sizeRangeMax"`
	Conditions   []string    `json:"conditions"`
	SourceText   string      `json:"sourceText"`
}

// parseResponse locates the JSON array of tariff objects in resp and returns
// its elements undecoded. Leading and trailing prose is ignored. A bracketed
// span that is not such an array is skipped as a whole, so brackets nested
// inside a broken array are never read on their own. An unbalanced '[' ends
// the search: everything after it belongs to the truncated array.
func parseResponse(resp string) ([]json.RawMessage, error) {
	for start := strings.IndexByte(resp, '['); start >= 0; {
		end, ok := matchBracket(resp, start)
		if !ok {
			break
		}
		if elems, err := decodeArray(resp[start : end+1]); err == nil {
			return elems, nil
		}
		next := strings.IndexByte(resp[end+1:], '[')
		if next < 0 {
			break
		}
		start = end + 1 + next
	}
	return nil, ErrUnparseableResponse
}

// matchBracket returns the index of the ']' closing the '[' at start,
// skipping brackets inside JSON strings.
func matchBracket(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// decodeArray accepts an empty array or one holding at least one object.
func decodeArray(raw string) ([]json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return elems, nil
	}
	for _, el := range elems {
		if t := bytes.TrimSpace(el); len(t) > 0 && t[0] == '{' {
			return elems, nil
		}
	}
	return nil, ErrUnparseableResponse
}

// llmTariff is a validated array element with its raw unit kept for scoring.
type llmTariff struct {
	candidate domain.TariffCandidate
	rawUnit   string
}

// toTariff validates one element against the item schema and converts it.
// Elements that do not fit are rejected, never coerced.
func toTariff(el json.RawMessage) (llmTariff, bool) {
	dec := json.NewDecoder(bytes.NewReader(el))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return llmTariff{}, false
	}
	if err := itemSchema.Validate(doc); err != nil {
		return llmTariff{}, false
	}

	var item tariffItem
	if err := json.Unmarshal(el, &item); err != nil {
		return llmTariff{}, false
	}
	amount, ok := finiteAmount(item.Amount)
	if !ok {
		return llmTariff{}, false
	}

	unit := strings.TrimSpace(item.Unit)
	c := domain.TariffCandidate{
		ChargeType:   pattern.NormalizeChargeType(item.ChargeType),
		ChargeName:   strings.TrimSpace(item.ChargeName),
		Amount:       amount,
		Currency:     pattern.NormalizeCurrency(item.Currency),
		Unit:         pattern.NormalizeUnit(unit),
		SizeRangeMin: item.SizeRangeMin,
		SizeRangeMax: item.SizeRangeMax,
		Conditions:   trimmed(item.Conditions),
		SourceText:   strings.TrimSpace(item.SourceText),
	}
	return llmTariff{candidate: c, rawUnit: unit}, true
}

func finiteAmount(n json.Number) (decimal.Decimal, bool) {
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func trimmed(in []string) []string {
	out := []string{}
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
