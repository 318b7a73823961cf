package system

import "testing"

type recSystem struct {
	name  string
	phase Phase
	log   *[]string
}

func (s *recSystem) Phase() Phase { return s.phase }

func (s *recSystem) Update(_, _ float32) { *s.log = append(*s.log, s.name) }

// go test -run ^TestRunnerPhaseOrder$ . -count 1
func TestRunnerPhaseOrder(t *testing.T) {
	var calls []string
	r := NewRunner()
	r.Register(&recSystem{"cleanup", PhaseCleanup, &calls})
	r.Register(&recSystem{"texture", PhaseTexture, &calls})
	r.Register(&recSystem{"move", PhaseMove, &calls})
	r.Register(&recSystem{"texture2", PhaseTexture, &calls})

	r.Tick(0, 0.016)

	want := []string{"move", "texture", "texture2", "cleanup"}
	if len(calls) != len(want) {
		t.Fatalf("got %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, calls[i], want[i])
		}
	}

	calls = calls[:0]
	r.TickPhase(PhaseTexture, 0, 0.016)
	if len(calls) != 2 || calls[0] != "texture" {
		t.Errorf("TickPhase ran %v", calls)
	}
}
