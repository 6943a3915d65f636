package config

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	rootElement = "SENSOR"
	modelIDAttr = "id"
)

// Load reads the sensor description at path, choosing YAML for .yaml/.yml and
// XML otherwise. The device id comes from infoPath; a missing info file
// leaves it empty.
func Load(path, infoPath string) (*Config, error) {
	id := ""
	if infoPath != "" {
		if f, err := os.Open(infoPath); err == nil {
			id, _ = ReadDeviceID(f)
			f.Close()
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open sensor config")
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f, id)
	default:
		return ParseXML(f, id)
	}
}

// ParseXML reads the <SENSOR> document. Elements below the third level are
// ignored, as are models without an id attribute.
func ParseXML(r io.Reader, deviceID string) (*Config, error) {
	c := New(deviceID)
	dec := xml.NewDecoder(r)

	var (
		depth               int
		sensorType, modelID string
		sawRoot             bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "parse sensor xml")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				if t.Name.Local != rootElement {
					return nil, errors.Errorf("parse sensor xml: root is <%s>, want <%s>", t.Name.Local, rootElement)
				}
				sawRoot = true
			case 2:
				sensorType = t.Name.Local
			case 3:
				modelID = ""
				for _, a := range t.Attr {
					if a.Name.Local == modelIDAttr {
						modelID = a.Value
					}
				}
				if modelID != "" {
					c.touch(sensorType, modelID, "")
				}
			case 4:
				if modelID == "" {
					continue
				}
				el := c.touch(sensorType, modelID, t.Name.Local)
				for _, a := range t.Attr {
					el[a.Name.Local] = a.Value
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	if !sawRoot {
		return nil, errors.New("parse sensor xml: empty document")
	}
	return c, nil
}

// ParseYAML reads the same tree from YAML. An element may be a map of
// attributes or a bare scalar, which is stored as its "value" attribute:
//
//	ACCEL:
//	  K2HH:
//	    NAME: K2HH
//	    RAW_DATA_UNIT: {value: 0.061, SM-R720: 0.122}
func ParseYAML(r io.Reader, deviceID string) (*Config, error) {
	var doc map[string]map[string]map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "parse sensor yaml")
	}
	c := New(deviceID)
	for typ, ms := range doc {
		for model, els := range ms {
			c.touch(typ, model, "")
			for name, v := range els {
				switch x := v.(type) {
				case map[string]any:
					el := c.touch(typ, model, name)
					for k, av := range x {
						el[k] = scalar(av)
					}
				case nil:
					c.touch(typ, model, name)
				default:
					c.Set(typ, model, name, AttrValue, scalar(x))
				}
			}
		}
	}
	return c, nil
}

func scalar(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ReadDeviceID extracts the product id from an info.ini stream: the text
// between "Model=" and the next ';' on the first line that has both.
func ReadDeviceID(r io.Reader) (string, bool) {
	const start, end = "Model=", ";"
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		i := strings.Index(line, start)
		if i < 0 {
			continue
		}
		rest := line[i+len(start):]
		j := strings.Index(rest, end)
		if j < 0 {
			continue
		}
		return rest[:j], true
	}
	return "", false
}
