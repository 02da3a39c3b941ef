package models

import (
	"strings"
	"time"
)

// RemoteImage is the nested image relation some history rows carry.
type RemoteImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// RemoteDiagnosis is a diagnosis as reported by the remote authority, either
// in the history list or as the result of a prediction.
type RemoteDiagnosis struct {
	ID         string       `json:"id"`
	Disease    string       `json:"disease"`
	Confidence float64      `json:"confidence"`
	Advice     Advice       `json:"advice"`
	CropType   string       `json:"cropType"`
	Crop       string       `json:"crop,omitempty"`
	ImageURL   string       `json:"imageUrl,omitempty"`
	Image      *RemoteImage `json:"image,omitempty"`
	CreatedAt  string       `json:"createdAt,omitempty"`
}

// CropName prefers the explicit crop field over cropType.
func (d RemoteDiagnosis) CropName() string {
	if c := strings.TrimSpace(d.Crop); c != "" {
		return c
	}
	return d.CropType
}

// ImageLocation prefers the nested image relation over the flat imageUrl.
func (d RemoteDiagnosis) ImageLocation() string {
	if d.Image != nil && d.Image.URL != "" {
		return d.Image.URL
	}
	return d.ImageURL
}

// CreatedTime parses CreatedAt, falling back to fallback when it is absent or
// malformed.
func (d RemoteDiagnosis) CreatedTime(fallback time.Time) time.Time {
	if d.CreatedAt == "" {
		return fallback.UTC().Truncate(time.Millisecond)
	}
	t, err := ParseTimestamp(d.CreatedAt)
	if err != nil {
		return fallback.UTC().Truncate(time.Millisecond)
	}
	return t
}

// ToRecord maps the remote shape to a server-confirmed local record.
func (d RemoteDiagnosis) ToRecord(now time.Time) DiagnosisRecord {
	return DiagnosisRecord{
		RemoteID:      StringPtr(d.ID),
		Crop:          d.CropName(),
		Disease:       d.Disease,
		Confidence:    d.Confidence,
		Advice:        d.Advice.Clone(),
		ImageLocation: d.ImageLocation(),
		CreatedAt:     d.CreatedTime(now),
		Synced:        true,
	}
}
