package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/entity-profile/internal/errkind"
)

// #region indices

// Index names of the stored documents.
const (
	DetectorIndex = ".opendistro-anomaly-detectors"
	JobIndex      = ".opendistro-anomaly-detector-jobs"
	ResultIndex   = ".opendistro-anomaly-results"
)

// #endregion indices

// #region interval

// Interval is a detection period such as {"interval": 10, "unit": "Minutes"}.
type Interval struct {
	Interval int64  `json:"interval"`
	Unit     string `json:"unit"`
}

// Duration converts the interval to a time.Duration.
func (i Interval) Duration() (time.Duration, error) {
	var unit time.Duration
	switch strings.ToLower(i.Unit) {
	case "seconds":
		unit = time.Second
	case "minutes", "":
		unit = time.Minute
	case "hours":
		unit = time.Hour
	case "days":
		unit = 24 * time.Hour
	default:
		return 0, fmt.Errorf("unsupported interval unit %q", i.Unit)
	}
	return time.Duration(i.Interval) * unit, nil
}

type periodJSON struct {
	Period Interval `json:"period"`
}

// #endregion interval

// #region detector

// Detector is the decoded detector configuration. Immutable once decoded.
type Detector struct {
	ID                string
	Name              string
	CategoryFields    []string
	DetectionInterval time.Duration
}

// IntervalMinutes returns the detection interval in whole minutes.
func (d Detector) IntervalMinutes() int64 {
	return int64(d.DetectionInterval / time.Minute)
}

type detectorJSON struct {
	Name              string     `json:"name"`
	CategoryField     []string   `json:"category_field"`
	DetectionInterval periodJSON `json:"detection_interval"`
}

// DecodeDetector parses a stored detector document.
func DecodeDetector(id string, source []byte) (Detector, error) {
	var raw detectorJSON
	if err := strictUnmarshal(source, &raw); err != nil {
		return Detector{}, errkind.Wrap(errkind.Decode, err, "decode detector "+id)
	}
	d, err := raw.DetectionInterval.Period.Duration()
	if err != nil {
		return Detector{}, errkind.Wrap(errkind.Decode, err, "decode detector "+id)
	}
	if d <= 0 {
		return Detector{}, errkind.Newf(errkind.Decode, "decode detector %s: detection interval must be positive", id)
	}
	fields := make([]string, len(raw.CategoryField))
	copy(fields, raw.CategoryField)
	return Detector{
		ID:                id,
		Name:              raw.Name,
		CategoryFields:    fields,
		DetectionInterval: d,
	}, nil
}

// EncodeDetector renders a detector in its stored form.
func EncodeDetector(d Detector) ([]byte, error) {
	return json.Marshal(detectorJSON{
		Name:          d.Name,
		CategoryField: d.CategoryFields,
		DetectionInterval: periodJSON{Period: Interval{
			Interval: d.IntervalMinutes(),
			Unit:     "Minutes",
		}},
	})
}

// #endregion detector

// #region job

// Job is the decoded scheduled job of a detector.
type Job struct {
	Name        string
	Enabled     bool
	EnabledTime time.Time
}

type jobJSON struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	EnabledTime int64  `json:"enabled_time"`
}

// DecodeJob parses a stored job document. enabled_time is epoch milliseconds.
func DecodeJob(source []byte) (Job, error) {
	var raw jobJSON
	if err := strictUnmarshal(source, &raw); err != nil {
		return Job{}, errkind.Wrap(errkind.Decode, err, "decode job")
	}
	return Job{
		Name:        raw.Name,
		Enabled:     raw.Enabled,
		EnabledTime: time.UnixMilli(raw.EnabledTime).UTC(),
	}, nil
}

// EncodeJob renders a job in its stored form.
func EncodeJob(j Job) ([]byte, error) {
	return json.Marshal(jobJSON{
		Name:        j.Name,
		Enabled:     j.Enabled,
		EnabledTime: j.EnabledTime.UnixMilli(),
	})
}

// #endregion job

// #region helpers

func strictUnmarshal(source []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(source))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after document")
	}
	return nil
}

// #endregion helpers
