package compiler

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Parser is responsible for converting raw graph exports into a GraphDocument.
// It accepts the Drawflow export shape ({"drawflow":{"Home":{"data":{...}}}})
// and a bare map of records keyed by graph-local id.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

type rawRecord struct {
	ID      string               `mapstructure:"id"`
	Class   string               `mapstructure:"class"`
	Data    map[string]any       `mapstructure:"data"`
	Outputs map[string]rawOutput `mapstructure:"outputs"`
}

type rawOutput struct {
	Connections []rawConnection `mapstructure:"connections"`
}

type rawConnection struct {
	Node string `mapstructure:"node"`
}

// Parse decodes JSON content into a GraphDocument.
func (p *Parser) Parse(data []byte) (*domain.GraphDocument, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domain.Structural(domain.ErrInvalidDocument, "", err.Error())
	}
	return p.ParseMap(raw)
}

// ParseMap indexes an already-decoded document.
func (p *Parser) ParseMap(raw map[string]any) (*domain.GraphDocument, error) {
	records := unwrapDrawflow(raw)
	if len(records) == 0 {
		return nil, domain.Structural(domain.ErrInvalidDocument, "", "empty graph export")
	}

	doc := &domain.GraphDocument{Records: make(map[string]*domain.NodeRecord, len(records))}
	for id, v := range records {
		rec, err := decodeRecord(id, v)
		if err != nil {
			return nil, err
		}
		doc.Records[id] = rec
	}
	return doc, nil
}

// unwrapDrawflow returns the record map, descending through the Drawflow envelope if present.
func unwrapDrawflow(raw map[string]any) map[string]any {
	df, ok := raw["drawflow"].(map[string]any)
	if !ok {
		return raw
	}
	home, _ := df["Home"].(map[string]any)
	data, _ := home["data"].(map[string]any)
	return data
}

func decodeRecord(id string, v any) (*domain.NodeRecord, error) {
	var rr rawRecord
	if err := weakDecode(v, &rr); err != nil {
		return nil, domain.Structural(domain.ErrInvalidDocument, id, err.Error())
	}

	class, err := domain.ParseNodeClass(rr.Class)
	if err != nil {
		return nil, domain.Structural(domain.ErrInvalidDocument, id, err.Error())
	}

	rec := &domain.NodeRecord{ID: id, Class: class}
	if err := weakDecode(rr.Data, &rec.Data); err != nil {
		return nil, domain.Structural(domain.ErrInvalidDocument, id, fmt.Sprintf("data: %v", err))
	}

	// Drawflow names ports output_1, output_2, ...; connection order is port order, then
	// order within the port.
	ports := make([]string, 0, len(rr.Outputs))
	for port := range rr.Outputs {
		ports = append(ports, port)
	}
	sortPorts(ports)
	for _, port := range ports {
		for _, c := range rr.Outputs[port].Connections {
			if c.Node != "" {
				rec.Outputs = append(rec.Outputs, c.Node)
			}
		}
	}
	return rec, nil
}

// sortPorts orders ports by their numeric suffix, so output_2 precedes output_10. Ports
// without one follow in name order.
func sortPorts(ports []string) {
	sort.Slice(ports, func(i, j int) bool {
		a, okA := portIndex(ports[i])
		b, okB := portIndex(ports[j])
		switch {
		case okA && okB && a != b:
			return a < b
		case okA != okB:
			return okA
		default:
			return ports[i] < ports[j]
		}
	})
}

func portIndex(port string) (int, bool) {
	i := strings.LastIndexByte(port, '_')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(port[i+1:])
	return n, err == nil
}

func weakDecode(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
