package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestLanguageCode(t *testing.T) {
	for in, want := range map[string]string{"Spanish": "es", "english": "en", "DE": "de", "pt-br": "pt-br"} {
		got, err := LanguageCode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := LanguageCode("klingon")
	assert.Error(t, err)
}

func TestIsEnglish(t *testing.T) {
	for _, l := range []string{"", "english", "English", "en", "EN", "en-gb"} {
		assert.True(t, IsEnglish(l), l)
	}
	for _, l := range []string{"spanish", "es", "pt-br", "klingon"} {
		assert.False(t, IsEnglish(l), l)
	}
}

func TestChunk(t *testing.T) {
	assert.Equal(t, []string{"aaa\nbb", "cccc"}, Chunk("aaa\nbb\ncccc", 6))
	assert.Equal(t, []string{"toolongline"}, Chunk("toolongline", 4))
	assert.Equal(t, []string{"one"}, Chunk("one", 100))
}

type translateBody struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Format string   `json:"format"`
}

func TestTranslate(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body translateBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "es", body.Target)
		assert.Equal(t, "text", body.Format)

		var trs []map[string]string
		for _, q := range body.Q {
			trs = append(trs, map[string]string{"translatedText": strings.ToUpper(q)})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"translations": trs}}))
	}))
	defer srv.Close()

	tr, err := NewTranslator(context.Background(), "k", srv.URL+"/", option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	tr.chunkChars = 8

	out, err := tr.Translate(context.Background(), "hello\nworld\nagain", "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "HELLO\nWORLD\nAGAIN", out)
	assert.Equal(t, 1, calls)

	out, err = tr.Translate(context.Background(), "unchanged", "english")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", out)
	assert.Equal(t, 1, calls)
}
