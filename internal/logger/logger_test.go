package logger

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestGet_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func(routine int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				if Get() == nil {
					t.Errorf("Get() = nil in goroutine %d", routine)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		" WARN ":   zerolog.WarnLevel,
		"disabled": zerolog.Disabled,
		"nonsense": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", in, got, want)
		}
	}
}
