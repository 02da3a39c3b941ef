package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/agriai/agrisync/internal/client/models"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func sampleRecords() []models.DiagnosisRecord {
	return []models.DiagnosisRecord{
		{
			LocalID:       2,
			RemoteID:      models.StringPtr("r-100"),
			Crop:          "Maize",
			Disease:       "Northern Corn Leaf Blight",
			Confidence:    0.934,
			Advice:        models.Structured(json.RawMessage(`{"steps":["Scout weekly","Apply neem"]}`)),
			ImageLocation: "https://cdn.example.test/img/100.jpg",
			CreatedAt:     time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
			Synced:        true,
		},
		{
			LocalID:    1,
			Crop:       "Cassava plants long",
			Disease:    "Fall Armyworm (Offline Prediction)",
			Confidence: 0.89,
			CreatedAt:  time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC),
		},
		{
			LocalID:    7,
			Crop:       "Tomato",
			Disease:    "Tomato Yellow Leaf Curl Virus with secondary infection",
			Confidence: 0.5,
			CreatedAt:  time.Date(2025, 3, 1, 1, 59, 0, 0, time.FixedZone("EAT", 2*60*60)),
		},
	}
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, sampleRecords()))
	newGolden(t).Assert(t, "history_table", buf.Bytes())
}

func TestRenderHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, nil))
	newGolden(t).Assert(t, "history_empty", buf.Bytes())
}

func TestRecordMarkdown(t *testing.T) {
	recs := sampleRecords()
	g := newGolden(t)
	g.Assert(t, "record_synced", []byte(RecordMarkdown(recs[0])))
	g.Assert(t, "record_local", []byte(RecordMarkdown(recs[1])))
}

func TestRenderStatus(t *testing.T) {
	g := newGolden(t)

	var online bytes.Buffer
	require.NoError(t, RenderStatus(&online, StatusView{
		Connected:         true,
		InternetReachable: true,
		APIBaseURL:        "https://api.example.test/api",
		Identity:          "sub:farmer-7",
		Authenticated:     true,
		ExpiresAt:         time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		Records:           3,
		LocalOnly:         1,
	}))
	g.Assert(t, "status_online", online.Bytes())

	var offline bytes.Buffer
	require.NoError(t, RenderStatus(&offline, StatusView{
		ForcedOffline: true,
		APIBaseURL:    "http://127.0.0.1:3000/api",
		Identity:      "sub:farmer-7",
	}))
	g.Assert(t, "status_offline", offline.Bytes())
}

func TestRenderStatus_NoExpiry(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderStatus(&buf, StatusView{Authenticated: true, Identity: "token:ab12"}))
	assert.Contains(t, buf.String(), "signed in as token:ab12\n")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "Ma…", truncate("Manioc", 3))
	assert.Equal(t, "Ñandú", truncate("Ñandú", 5))
}

func TestMarkdownRenderer(t *testing.T) {
	render := newMarkdownRenderer()
	out, err := render(RecordMarkdown(sampleRecords()[1]))
	require.NoError(t, err)
	assert.Contains(t, out, "Fall Armyworm (Offline Prediction)")
	assert.Contains(t, out, "Advice")
}
