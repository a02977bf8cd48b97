package animator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func addNode(t testing.TB, g scene.Graph, name string, parent scene.NodeID) scene.NodeID {
	t.Helper()
	n, err := g.AddNode(name, parent, mgl32.Ident4())
	if err != nil {
		t.Fatalf("AddNode(%q): %v", name, err)
	}
	return n
}

func lift(tm, y float32) animation.KeyFrame {
	k := animation.NewKeyFrame(tm)
	k.Translation = mgl32.Vec3{0, y, 0}
	return k
}

// newLift animates node from y=0 at t=0 to y=10 at t=10 and skins it with a one-bone mesh.
func newLift(t testing.TB, g scene.Graph, node scene.NodeID, options ...animation.UpdaterBuilderOption) animation.Updater {
	t.Helper()
	mesh := scene.NewSkinMesh(g.NodeName(node)+"_mesh",
		scene.WithBones(scene.Bone{Node: node, InverseBind: mgl32.Ident4()}),
	)
	clip, err := animation.NewAnimationClip(g.NodeName(node),
		animation.WithNodeAnimation(node, lift(0, 0), lift(10, 10)),
		animation.WithSkinMesh(mesh),
	)
	if err != nil {
		t.Fatalf("NewAnimationClip: %v", err)
	}
	u, err := animation.NewUpdater(clip, g, options...)
	if err != nil {
		t.Fatalf("NewUpdater: %v", err)
	}
	return u
}

// crowd returns n updaters, each over its own graph.
func crowd(t testing.TB, n int) []animation.Updater {
	t.Helper()
	us := make([]animation.Updater, n)
	for i := range us {
		g := scene.NewGraph()
		node := addNode(t, g, fmt.Sprintf("lift%d", i), scene.Nil)
		us[i] = newLift(t, g, node)
	}
	return us
}

func boneY(u animation.Updater) float32 {
	return u.Clip().BoneSkinMeshes[0].BoneMatrices()[0].Col(3).Y()
}

func TestAnimatorBackends(t *testing.T) {
	for _, backendType := range []AnimatorBackendType{BackendTypeSequential, BackendTypePooled} {
		t.Run(backendType.String(), func(t *testing.T) {
			a := NewAnimator(backendType, WithWorkers(3), WithQueueSize(8))
			defer a.Stop()

			us := crowd(t, 16)
			for i, u := range us {
				idx, err := a.Add(u)
				if err != nil {
					t.Fatalf("Add(%d): %v", i, err)
				}
				if idx != i {
					t.Fatalf("Add(%d) index = %d", i, idx)
				}
			}

			for _, tc := range []struct {
				ts    int64
				wantY float32
			}{{ts: 2500, wantY: 2.5}, {ts: 7000, wantY: 7}, {ts: 15000, wantY: 5}} {
				a.Update(context.Background(), tc.ts, 1000)
				for i, u := range us {
					if have := boneY(u); mgl32.Abs(have-tc.wantY) > 1e-4 {
						t.Errorf("ts=%d updater %d bone y = %v, want %v", tc.ts, i, have, tc.wantY)
					}
				}
			}

			a.Reset()
			for i, u := range us {
				if have := boneY(u); mgl32.Abs(have) > 1e-6 {
					t.Errorf("after Reset updater %d bone y = %v, want 0", i, have)
				}
			}
		})
	}
}

func TestAnimatorPooledPanics(t *testing.T) {
	a := NewAnimator(BackendTypePooled, WithWorkers(2))
	defer a.Stop()

	us := crowd(t, 3)
	for _, u := range us {
		if _, err := a.Add(u); err != nil {
			t.Fatal(err)
		}
	}

	defer func() {
		if recover() == nil {
			t.Error("panic in a pooled task was not re-raised")
		}
	}()
	a.(*animator).backend.Each(us, func(u animation.Updater) {
		if u == us[1] {
			panic("boom")
		}
	})
}

func TestAnimatorOverlap(t *testing.T) {
	g := scene.NewGraph()
	hips := addNode(t, g, "hips", scene.Nil)
	spine := addNode(t, g, "spine", hips)
	leftArm := addNode(t, g, "left_arm", spine)
	rightArm := addNode(t, g, "right_arm", spine)
	other := scene.NewGraph()
	otherHips := addNode(t, other, "hips", scene.Nil)

	tests := []struct {
		name   string
		second func() animation.Updater
		want   error
	}{
		{
			name:   "sibling subtree",
			second: func() animation.Updater { return newLift(t, g, rightArm) },
		},
		{
			name:   "other graph",
			second: func() animation.Updater { return newLift(t, other, otherHips) },
		},
		{
			name:   "same root",
			second: func() animation.Updater { return newLift(t, g, leftArm) },
			want:   ErrOverlap,
		},
		{
			name:   "ancestor",
			second: func() animation.Updater { return newLift(t, g, spine) },
			want:   ErrOverlap,
		},
		{
			name: "reads a written bone",
			second: func() animation.Updater {
				mesh := scene.NewSkinMesh("reader", scene.WithBones(
					scene.Bone{Node: rightArm, InverseBind: mgl32.Ident4()},
					scene.Bone{Node: leftArm, InverseBind: mgl32.Ident4()},
				))
				clip, err := animation.NewAnimationClip("reader",
					animation.WithNodeAnimation(rightArm, lift(0, 0)),
					animation.WithSkinMesh(mesh),
				)
				if err != nil {
					t.Fatal(err)
				}
				u, err := animation.NewUpdater(clip, g)
				if err != nil {
					t.Fatal(err)
				}
				return u
			},
			want: ErrOverlap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnimator(BackendTypePooled, WithWorkers(1))
			defer a.Stop()
			if _, err := a.Add(newLift(t, g, leftArm)); err != nil {
				t.Fatalf("first Add: %v", err)
			}
			_, err := a.Add(tt.second())
			if !errors.Is(err, tt.want) {
				t.Errorf("second Add error = %v, want %v", err, tt.want)
			}

			// The sequential backend never runs two updaters at once.
			seq := NewAnimator(BackendTypeSequential)
			if _, err := seq.Add(newLift(t, g, leftArm)); err != nil {
				t.Fatal(err)
			}
			if _, err := seq.Add(tt.second()); err != nil {
				t.Errorf("sequential Add: %v", err)
			}
		})
	}
}

func TestAnimatorSharedSkinAcrossGraphs(t *testing.T) {
	// Skin meshes are compared by identity even across graphs.
	us := crowd(t, 1)
	g := scene.NewGraph()
	n := addNode(t, g, "n", scene.Nil)
	clip, err := animation.NewAnimationClip("shared",
		animation.WithNodeAnimation(n, lift(0, 0)),
		animation.WithSkinMesh(us[0].Clip().BoneSkinMeshes...),
	)
	if err != nil {
		t.Fatal(err)
	}
	second, err := animation.NewUpdater(clip, g)
	if err != nil {
		t.Fatal(err)
	}

	a := NewAnimator(BackendTypePooled)
	defer a.Stop()
	if _, err := a.Add(us[0]); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Add(second); !errors.Is(err, ErrOverlap) {
		t.Errorf("Add error = %v, want %v", err, ErrOverlap)
	}
}

func TestAnimatorRemove(t *testing.T) {
	a := NewAnimator(BackendTypeSequential)
	us := crowd(t, 3)
	for _, u := range us {
		if _, err := a.Add(u); err != nil {
			t.Fatal(err)
		}
	}

	if last, swapped := a.Remove(0); !swapped || last != 2 {
		t.Errorf("Remove(0) = (%d, %v), want (2, true)", last, swapped)
	}
	if have := a.Updaters(); len(have) != 2 || have[0] != us[2] || have[1] != us[1] {
		t.Errorf("Updaters() after Remove(0) = %v, want [u2 u1]", have)
	}
	if _, swapped := a.Remove(1); swapped {
		t.Error("Remove of the last index reported a swap")
	}
	if _, swapped := a.Remove(5); swapped {
		t.Error("Remove out of range reported a swap")
	}
	if have, want := a.Len(), 1; have != want {
		t.Errorf("Len() = %d, want %d", have, want)
	}

	// A removed updater is no longer driven.
	a.Update(context.Background(), 5, 1)
	if have := boneY(us[1]); have != 0 {
		t.Errorf("removed updater bone y = %v, want 0", have)
	}
	if have := boneY(us[2]); mgl32.Abs(have-5) > 1e-4 {
		t.Errorf("kept updater bone y = %v, want 5", have)
	}
}

func TestAnimatorAddErrors(t *testing.T) {
	a := NewAnimator(BackendTypeSequential)
	if _, err := a.Add(nil); !errors.Is(err, ErrNilUpdater) {
		t.Errorf("Add(nil) error = %v, want %v", err, ErrNilUpdater)
	}

	a.Stop()
	a.Stop()
	if _, err := a.Add(crowd(t, 1)[0]); !errors.Is(err, ErrStopped) {
		t.Errorf("Add after Stop error = %v, want %v", err, ErrStopped)
	}
}

func TestAnimatorStoppedUpdateIsNoop(t *testing.T) {
	a := NewAnimator(BackendTypePooled)
	us := crowd(t, 2)
	for _, u := range us {
		if _, err := a.Add(u); err != nil {
			t.Fatal(err)
		}
	}
	a.Stop()

	a.Update(context.Background(), 5, 1)
	a.Reset()
	for i, u := range us {
		if have := boneY(u); have != 0 {
			t.Errorf("updater %d bone y = %v after stopped Update, want 0", i, have)
		}
	}
}

func TestAnimatorSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	a := NewAnimator(BackendTypePooled, WithTracer(tp.Tracer("test")), WithWorkers(2))
	defer a.Stop()
	for _, u := range crowd(t, 3) {
		if _, err := a.Add(u); err != nil {
			t.Fatal(err)
		}
	}

	a.Update(context.Background(), 1, 1)
	a.Update(context.Background(), 2, 1)

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	for _, s := range spans {
		if s.Name() != "animator.update" {
			t.Errorf("span name = %q, want animator.update", s.Name())
		}
		attrs := map[attribute.Key]attribute.Value{}
		for _, kv := range s.Attributes() {
			attrs[kv.Key] = kv.Value
		}
		if have := attrs["animator.updaters"].AsInt64(); have != 3 {
			t.Errorf("animator.updaters = %d, want 3", have)
		}
		if have := attrs["animator.backend"].AsString(); have != "pooled" {
			t.Errorf("animator.backend = %q, want pooled", have)
		}
	}
}

func TestAnimatorBackendTypeString(t *testing.T) {
	if have := AnimatorBackendType(9).String(); have != "AnimatorBackendType(9)" {
		t.Errorf("String() = %q", have)
	}
	if have := NewAnimator(AnimatorBackendType(9)).BackendType(); have != BackendTypeSequential {
		t.Errorf("unknown backend type resolved to %v, want sequential", have)
	}
}

func BenchmarkAnimatorUpdate(b *testing.B) {
	for _, backendType := range []AnimatorBackendType{BackendTypeSequential, BackendTypePooled} {
		b.Run(backendType.String(), func(b *testing.B) {
			a := NewAnimator(backendType)
			defer a.Stop()
			for _, u := range crowd(b, 64) {
				if _, err := a.Add(u); err != nil {
					b.Fatal(err)
				}
			}
			ctx := context.Background()
			b.ResetTimer()
			for i := range b.N {
				a.Update(ctx, int64(i%10000), 1000)
			}
		})
	}
}
