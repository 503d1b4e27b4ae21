package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"
	gtranslate "google.golang.org/api/translate/v2"
)

const (
	defaultChunkChars = 4000
	batchSize         = 16
)

var languageCodes = map[string]string{
	"arabic": "ar", "bengali": "bn", "chinese": "zh", "dutch": "nl",
	"english": "en", "french": "fr", "german": "de", "hindi": "hi",
	"indonesian": "id", "italian": "it", "japanese": "ja", "korean": "ko",
	"marathi": "mr", "polish": "pl", "portuguese": "pt", "russian": "ru",
	"spanish": "es", "swedish": "sv", "tamil": "ta", "telugu": "te",
	"turkish": "tr", "ukrainian": "uk", "urdu": "ur", "vietnamese": "vi",
}

// LanguageCode maps a language name ("Spanish") to its ISO code. Values that
// already look like codes pass through lowercased.
func LanguageCode(language string) (string, error) {
	l := strings.ToLower(strings.TrimSpace(language))
	if code, ok := languageCodes[l]; ok {
		return code, nil
	}
	if n := len(l); n == 2 || (n == 5 && l[2] == '-') {
		return l, nil
	}
	return "", fmt.Errorf("unsupported language %q", language)
}

// IsEnglish reports whether language names English, either by name or by
// code ("English", "en", "en-GB"). Blank means the default, English.
func IsEnglish(language string) bool {
	if strings.TrimSpace(language) == "" {
		return true
	}
	code, err := LanguageCode(language)
	return err == nil && (code == "en" || strings.HasPrefix(code, "en-"))
}

// Translator wraps the Cloud Translation v2 API.
type Translator struct {
	service    *gtranslate.Service
	chunkChars int
}

// NewTranslator builds a client authenticated with apiKey.
func NewTranslator(ctx context.Context, apiKey, endpoint string, opts ...option.ClientOption) (*Translator, error) {
	all := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		all = append(all, option.WithEndpoint(endpoint))
	}
	svc, err := gtranslate.NewService(ctx, append(all, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Translate service: %w", err)
	}
	return &Translator{service: svc, chunkChars: defaultChunkChars}, nil
}

// Translate returns text in the target language. English targets are
// returned unchanged since transcripts are recognized in English.
func (t *Translator) Translate(ctx context.Context, text, target string) (string, error) {
	code, err := LanguageCode(target)
	if err != nil {
		return "", err
	}
	if IsEnglish(code) || strings.TrimSpace(text) == "" {
		return text, nil
	}

	chunks := Chunk(text, t.chunkChars)
	out := make([]string, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		resp, err := t.service.Translations.Translate(&gtranslate.TranslateTextRequest{
			Q:      chunks[start:end],
			Target: code,
			Format: "text",
		}).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("translate to %s: %w", code, err)
		}
		if len(resp.Translations) != end-start {
			return "", errors.New("translate: response count does not match request")
		}
		for _, tr := range resp.Translations {
			out = append(out, tr.TranslatedText)
		}
	}

	slog.Info("transcript translated", slog.String("target", code), slog.Int("chunks", len(chunks)))
	return strings.Join(out, "\n"), nil
}

// Chunk groups lines into pieces of at most max characters. A single line
// longer than max is kept whole.
func Chunk(text string, max int) []string {
	var chunks []string
	var cur strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if cur.Len() > 0 && cur.Len()+1+len(line) > max {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
