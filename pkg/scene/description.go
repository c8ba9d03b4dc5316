package scene

import (
	"encoding/json"
	"fmt"
)

// PluginDescription names a registered type and its parameters
type PluginDescription struct {
	Type       string
	ID         string
	Properties *Properties
}

// NewPluginDescription creates a description in code
func NewPluginDescription(typeName string, values map[string]any) *PluginDescription {
	return &PluginDescription{Type: typeName, Properties: NewProperties(typeName, values)}
}

func newPluginDescription(path string, values map[string]any) (*PluginDescription, error) {
	d := &PluginDescription{}
	rest := make(map[string]any, len(values))
	for k, v := range values {
		rest[k] = v
	}

	t, ok := rest["type"].(string)
	if !ok || t == "" {
		return nil, fmt.Errorf("%s.type: %w", path, ErrMissingProperty)
	}
	d.Type = t
	delete(rest, "type")

	if id, ok := rest["id"]; ok {
		s, isString := id.(string)
		if !isString {
			return nil, fmt.Errorf("%s.id: %w: expected a string", path, ErrInvalidProperty)
		}
		d.ID = s
		delete(rest, "id")
	}

	d.Properties = NewProperties(path, rest)
	return d, nil
}

// UnmarshalJSON decodes {"type": ..., "id": ..., other properties...}
func (d *PluginDescription) UnmarshalJSON(data []byte) error {
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	parsed, err := newPluginDescription("", values)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// MarshalJSON writes the description back in the form UnmarshalJSON reads
func (d *PluginDescription) MarshalJSON() ([]byte, error) {
	values := map[string]any{"type": d.Type}
	if d.ID != "" {
		values["id"] = d.ID
	}
	if d.Properties != nil {
		for k, v := range d.Properties.values {
			values[k] = v
		}
	}
	return json.Marshal(values)
}

func (d *PluginDescription) setPath(path string) {
	if d.Properties == nil {
		d.Properties = NewProperties(path, nil)
	}
	d.Properties.path = path
}

// Description is the decoded form of a JSON scene file
type Description struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Seed        uint64               `json:"seed"`
	Integrator  *PluginDescription   `json:"integrator"`
	Sensor      *PluginDescription   `json:"sensor"`
	Materials   []*PluginDescription `json:"materials"`
	Shapes      []*PluginDescription `json:"shapes"`
	Emitters    []*PluginDescription `json:"emitters"`

	// LightSampling selects "power" or "uniform" emitter selection
	LightSampling string `json:"lightSampling"`
}

// ParseDescription decodes a JSON scene description
func ParseDescription(data []byte) (*Description, error) {
	var d Description
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode scene description: %w", err)
	}

	if d.Integrator != nil {
		d.Integrator.setPath("integrator")
	}
	if d.Sensor != nil {
		d.Sensor.setPath("sensor")
	}
	lists := []struct {
		name  string
		items []*PluginDescription
	}{
		{"materials", d.Materials},
		{"shapes", d.Shapes},
		{"emitters", d.Emitters},
	}
	for _, list := range lists {
		for i, item := range list.items {
			path := fmt.Sprintf("%s[%d]", list.name, i)
			if item == nil {
				return nil, fmt.Errorf("%s: %w: null entry", path, ErrInvalidProperty)
			}
			item.setPath(path)
		}
	}
	return &d, nil
}
