package image

import (
	"errors"
	"testing"

	"productshoot/internal/domain"
)

func TestRegistryLookup(t *testing.T) {
	gemini, _ := NewGeminiGenerator(GeminiOptions{})
	seedream, _ := NewSeedreamGenerator(SeedreamOptions{})
	reg := NewRegistry(gemini, seedream)

	cases := []struct {
		engine string
		want   string
	}{
		{engine: "", want: EngineGemini},
		{engine: "GEMINI", want: EngineGemini},
		{engine: " seedream ", want: EngineSeedream},
	}
	for _, tc := range cases {
		g, err := reg.Lookup(tc.engine)
		if err != nil {
			t.Fatalf("Lookup(%q) error: %v", tc.engine, err)
		}
		if g.Name() != tc.want {
			t.Fatalf("Lookup(%q) = %s, want %s", tc.engine, g.Name(), tc.want)
		}
	}

	_, err := reg.Lookup("dalle")
	if !errors.Is(err, domain.ErrInvalidInput) || err.Error() != "unsupported engine: dalle" {
		t.Fatalf("unexpected error: %v", err)
	}

	modes := reg.Modes()
	if modes[EngineGemini] != "mock" || modes[EngineSeedream] != "mock" {
		t.Fatalf("unexpected modes: %v", modes)
	}
	if engines := reg.Engines(); len(engines) != 2 || engines[0] != EngineGemini {
		t.Fatalf("unexpected engines: %v", engines)
	}
}
