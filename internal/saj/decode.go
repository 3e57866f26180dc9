package saj

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jkaberg/saj-hass/internal/sensors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
)

// longSchemaColumns is the field count from which a CSV line uses the second
// (long) column layout.
const longSchemaColumns = 24

// realTimeData mirrors real_time_data.xml: a root element with one flat child
// per value, e.g. <p-ac>1234</p-ac>.
type realTimeData struct {
	Fields []xmlField `xml:",any"`
}

type xmlField struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

// parseXML decodes a single document in any declared charset. Anything but
// whitespace, comments or processing instructions after the root element is
// rejected.
func parseXML(body []byte) (*realTimeData, error) {
	d := xml.NewDecoder(bytes.NewReader(body))
	d.CharsetReader = charset.NewReaderLabel

	var doc realTimeData
	if err := d.Decode(&doc); err != nil {
		return nil, err
	}
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return nil, errors.New("junk after document element")
			}
		default:
			return nil, errors.New("junk after document element")
		}
	}
}

// decodeXML resolves every registry sensor against the document. The first
// missing key aborts the pass.
func (r *Reader) decodeXML(body []byte, reg *sensors.Registry, at time.Time) ([]sensors.Reading, error) {
	doc, err := parseXML(body)
	if err != nil {
		return nil, &PayloadError{Host: r.host, Detail: "no valid XML received", Err: err}
	}

	fields := make(map[string]string, len(doc.Fields))
	for _, f := range doc.Fields {
		if _, seen := fields[f.XMLName.Local]; !seen {
			fields[f.XMLName.Local] = f.Text
		}
	}

	readings := make([]sensors.Reading, 0, reg.Len())
	for s := range reg.All() {
		text, ok := fields[s.Key]
		if !ok {
			return nil, &PayloadError{
				Host:   r.host,
				Detail: fmt.Sprintf("sensor key %s not found, inverter not compatible?", s.Key),
			}
		}
		readings = append(readings, sensors.Reading{Name: s.Name, Value: sensors.TextValue(text), At: at})
		r.logger.WithFields(logrus.Fields{
			"sensor": s.Name,
			"value":  text,
		}).Debug("Got new value for sensor")
	}
	return readings, nil
}

// decodeCSV reads the single status.php line. Lines shorter than 24 fields
// use column layout A, longer ones layout B.
func (r *Reader) decodeCSV(body []byte, reg *sensors.Registry, at time.Time) ([]sensors.Reading, error) {
	cr := csv.NewReader(bytes.NewReader(bytes.TrimSpace(body)))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	record, err := cr.Read()
	if err != nil {
		return nil, &PayloadError{Host: r.host, Detail: "no valid CSV line received", Err: err}
	}

	long := len(record) >= longSchemaColumns
	r.logger.WithFields(logrus.Fields{
		"columns":     len(record),
		"long_schema": long,
	}).Debug("Decoding CSV status line")

	readings := make([]sensors.Reading, 0, reg.Len())
	for s := range reg.All() {
		idx := s.CSVIndex(long)
		if idx == sensors.Absent {
			continue
		}
		if idx < 0 || idx >= len(record) {
			return nil, &PayloadError{
				Host:   r.host,
				Detail: fmt.Sprintf("sensor %s index %d out of range for %d columns", s.Name, idx, len(record)),
			}
		}

		raw := strings.TrimSpace(record[idx])
		value, err := decodeColumn(s, raw)
		if err != nil {
			return nil, &PayloadError{
				Host:   r.host,
				Detail: fmt.Sprintf("sensor %s column %d", s.Name, idx),
				Err:    err,
			}
		}
		readings = append(readings, sensors.Reading{Name: s.Name, Value: value, At: at})
		r.logger.WithFields(logrus.Fields{
			"sensor": s.Name,
			"value":  value.String(),
		}).Debug("Got new value for sensor")
	}
	return readings, nil
}

func decodeColumn(s *sensors.Sensor, raw string) (sensors.Value, error) {
	if s.Key == sensors.StateKey {
		name, err := sensors.StateName(raw)
		if err != nil {
			return sensors.Value{}, err
		}
		return sensors.TextValue(name), nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return sensors.Value{}, fmt.Errorf("not a number: %q", raw)
	}
	return sensors.NumberValue(s.Scale.Apply(f)), nil
}
