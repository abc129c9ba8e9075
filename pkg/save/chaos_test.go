package save_test

import (
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/calvinalkan/savekit/pkg/fs"
	"github.com/calvinalkan/savekit/pkg/save"
	"github.com/calvinalkan/savekit/pkg/save/slot"
)

// Under random storage faults, a load returns the last committed value or a
// value whose save reported an error, never a torn or corrupt file.
func TestManager_Random_Faults_Never_Corrupt_Saves(t *testing.T) {
	t.Parallel()

	for seed := range uint64(6) {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			t.Parallel()

			chaos := fs.NewChaos(fs.NewReal(), seed, fs.ChaosConfig{
				OpenFailRate:     0.05,
				ReadFailRate:     0.1,
				WriteFailRate:    0.05,
				PartialWriteRate: 0.05,
				SyncFailRate:     0.05,
				CloseFailRate:    0.05,
				RenameFailRate:   0.05,
				RemoveFailRate:   0.05,
				MkdirAllFailRate: 0.02,
			})

			m := newManager(t, save.Options{FS: chaos, Logger: zap.NewNop()})
			key := slot.QuickSave.Key()

			// possible holds every value the file may contain right now.
			possible := map[int]bool{}
			committed := false

			check := func(step int) {
				var got progress

				found, err := m.LoadInto(key, &got)
				if err != nil {
					if !errors.Is(err, save.ErrIO) {
						t.Fatalf("step %d: load err=%v, want only ErrIO", step, err)
					}

					return
				}

				if !found {
					if committed {
						t.Fatalf("step %d: save file vanished after a committed save", step)
					}

					return
				}

				if !possible[got.Level] {
					t.Fatalf("step %d: loaded level %d, want one of %v", step, got.Level, possible)
				}
			}

			for i := range 150 {
				err := m.Save(key, progress{Level: i, Position: position{X: float32(i)}})
				switch {
				case err == nil:
					possible = map[int]bool{i: true}
					committed = true
				case errors.Is(err, save.ErrIO):
					possible[i] = true
				default:
					t.Fatalf("step %d: save err=%v, want ErrIO", i, err)
				}

				check(i)
			}

			if chaos.Faults() == 0 {
				t.Fatal("no faults injected; rates too low for the step count")
			}

			chaos.SetMode(fs.ChaosModeNoOp)
			check(-1)

			if _, err := m.Sweep(); err != nil {
				t.Fatalf("Sweep: %v", err)
			}
		})
	}
}
