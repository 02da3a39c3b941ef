package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agriai/agrisync/internal/client/models"
	"github.com/agriai/agrisync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc, token string) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(srv.URL+"/api/", staticToken(token), srv.Client())
	require.NoError(t, err)
	return c
}

func TestNewHTTPClient_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClient("  ", nil, nil)
	require.Error(t, err)
}

func TestHistory_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/diagnosis/history", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get(common.AuthorizationHeaderName))
		assert.NotEmpty(t, r.Header.Get(common.CorrelationHeaderName))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"data":[
			{"id":"r1","disease":"Blight","confidence":0.92,"advice":"Spray copper.","cropType":"Maize",
			 "image":{"id":"i1","url":"https://cdn/leaf.jpg"},"imageUrl":"https://old/leaf.jpg","createdAt":"2025-03-01T10:00:00.000Z"},
			{"id":"r2","disease":"Rust","confidence":0.5,"advice":{"steps":["a","b"]},"crop":"Wheat"}
		]}`)
	}, "tok-1")

	got, err := c.History(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, "Maize", got[0].CropName())
	assert.Equal(t, "https://cdn/leaf.jpg", got[0].ImageLocation())
	assert.Equal(t, models.AdviceText, got[0].Advice.KindOrDefault())

	assert.Equal(t, "Wheat", got[1].CropName())
	assert.True(t, got[1].Advice.IsStructured())
}

func TestHistory_EmptyDataIsEmptySlice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true}`)
	}, "")

	got, err := c.History(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestHistory_NoTokenSendsNoAuthorization(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(common.AuthorizationHeaderName))
		_, _ = io.WriteString(w, `{"success":true,"data":[]}`)
	}, "")

	_, err := c.History(context.Background())
	require.NoError(t, err)
}

func TestHistory_SchemaViolationIsDecodeFailure(t *testing.T) {
	cases := map[string]string{
		"not json":           `<html>oops</html>`,
		"missing id":         `{"success":true,"data":[{"disease":"Blight","confidence":0.9}]}`,
		"confidence too big": `{"success":true,"data":[{"id":"r1","disease":"Blight","confidence":3}]}`,
		"data not array":     `{"success":true,"data":{"id":"r1"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}, "")
			_, err := c.History(context.Background())
			require.Error(t, err)
			require.ErrorIs(t, err, common.ErrDecodeFailure)
			require.NotErrorIs(t, err, common.ErrRemoteFailure)
		})
	}
}

func TestHistory_SuccessFalseIsRemoteFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"quota exceeded"}`)
	}, "")

	_, err := c.History(context.Background())
	require.ErrorIs(t, err, common.ErrRemoteFailure)
	require.Equal(t, "quota exceeded", common.UserMessage(err))
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		cause   error
		message string
	}{
		{"unauthorized uses error field", http.StatusUnauthorized, `{"error":"Token expired","message":"ignored"}`, ErrUnauthorized, "Token expired"},
		{"forbidden", http.StatusForbidden, `{"message":"Not yours"}`, ErrUnauthorized, "Not yours"},
		{"not found", http.StatusNotFound, `{"success":false}`, ErrNotFound, common.GenericErrorMessage},
		{"plain text body", http.StatusBadGateway, "upstream down", ErrUnavailable, "upstream down"},
		{"json string body", http.StatusInternalServerError, `"boom"`, nil, "boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}, "tok")

			_, err := c.History(context.Background())
			require.Error(t, err)
			require.ErrorIs(t, err, common.ErrRemoteFailure)

			var re *common.RemoteError
			require.True(t, errors.As(err, &re))
			require.Equal(t, tc.status, re.StatusCode)
			if tc.cause != nil {
				require.ErrorIs(t, err, tc.cause)
			}
			require.Equal(t, tc.message, common.UserMessage(err))
		})
	}
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, nil, nil)
	require.NoError(t, err)

	_, err = c.History(context.Background())
	require.ErrorIs(t, err, common.ErrRemoteFailure)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCanceledContextIsReported(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.History(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, common.ErrRemoteFailure)
}

func TestPredict_SendsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/diagnosis/predict", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get(common.AuthorizationHeaderName))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Maize", r.FormValue("cropType"))
		assert.Equal(t, "yellow spots", r.FormValue("symptoms"))
		assert.Empty(t, r.MultipartForm.Value["location"])

		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "leaf.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		data, _ := io.ReadAll(f)
		assert.Equal(t, "PNGDATA", string(data))

		_, _ = io.WriteString(w, `{"success":true,"data":{"diagnosis":{"id":"r1","disease":"Blight","confidence":0.92,"advice":"Remove leaves.","cropType":"Maize"}}}`)
	}, "tok")

	got, err := c.Predict(context.Background(), PredictInput{
		Image:    strings.NewReader("PNGDATA"),
		FileName: "/tmp/photos/leaf.png",
		CropType: "Maize",
		Symptoms: "yellow spots",
	})
	require.NoError(t, err)
	require.Equal(t, "r1", got.ID)
	require.Equal(t, "Blight", got.Disease)
	require.InDelta(t, 0.92, got.Confidence, 1e-9)
	require.Equal(t, "Remove leaves.", got.Advice.Text)
}

func TestPredict_TopLevelDiagnosis(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"diagnosis":{"id":"r9","disease":"Smut","confidence":0.4}}`)
	}, "tok")

	got, err := c.Predict(context.Background(), PredictInput{Image: strings.NewReader("x"), CropType: "Maize"})
	require.NoError(t, err)
	require.Equal(t, "r9", got.ID)
}

func TestPredict_MissingDiagnosisIsDecodeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true}`)
	}, "tok")

	_, err := c.Predict(context.Background(), PredictInput{Image: strings.NewReader("x"), CropType: "Maize"})
	require.ErrorIs(t, err, common.ErrDecodeFailure)
}

func TestPredict_RequiresImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}, "tok")

	_, err := c.Predict(context.Background(), PredictInput{CropType: "Maize"})
	require.ErrorIs(t, err, common.ErrInvalidRequest)
}

func TestDelete(t *testing.T) {
	t.Run("escapes id and accepts empty body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/api/diagnosis/a%2Fb", r.URL.EscapedPath())
			w.WriteHeader(http.StatusNoContent)
		}, "tok")
		require.NoError(t, c.Delete(context.Background(), "a/b"))
	})

	t.Run("success false", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success":false,"error":"locked"}`)
		}, "tok")
		err := c.Delete(context.Background(), "r1")
		require.ErrorIs(t, err, common.ErrRemoteFailure)
		require.Equal(t, "locked", common.UserMessage(err))
	})

	t.Run("not found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, "tok")
		err := c.Delete(context.Background(), "r1")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		}, "tok")
		require.ErrorIs(t, c.Delete(context.Background(), " "), common.ErrInvalidRequest)
	})
}

func TestErrorMessageExtraction(t *testing.T) {
	assert.Equal(t, "", errorMessage(nil))
	assert.Equal(t, "e", errorMessage([]byte(`{"error":"e","message":"m"}`)))
	assert.Equal(t, "m", errorMessage([]byte(`{"error":"","message":"m"}`)))
	assert.Equal(t, "", errorMessage([]byte(`{"error":{"code":1}}`)))
	assert.Equal(t, "text", errorMessage([]byte(`"text"`)))
	assert.Equal(t, "Bad Gateway", errorMessage([]byte("Bad Gateway\n")))
}
