package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

func ptr[T any](v T) *T { return &v }

func nearMat4(a, b mgl32.Mat4, eps float32) bool {
	for i := range a {
		if mgl32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

// liftDocument describes a root node carrying a one-bone skin and a child "lift" resting at
// (0, 1, 0), animated along Y by one translation channel. The binary buffer holds the key
// times, then the translations, then the inverse bind matrix.
func liftDocument(t testing.TB, times, ys []float32) (gltfDocument, []byte) {
	t.Helper()
	translations := make([]float32, 0, 3*len(ys))
	for _, y := range ys {
		translations = append(translations, 0, y, 0)
	}
	ibm := mgl32.Translate3D(0, -1, 0)

	var bin []byte
	var err error
	for _, data := range []any{times, translations, ibm[:]} {
		if bin, err = binary.Append(bin, binary.LittleEndian, data); err != nil {
			t.Fatalf("binary.Append: %v", err)
		}
	}
	timesLen, translationsLen := 4*len(times), 4*len(translations)

	doc := gltfDocument{
		Asset:  gltfAsset{Version: "2.0"},
		Scene:  ptr(0),
		Scenes: []gltfScene{{Name: "lift_scene", Nodes: []int{0}}},
		Nodes: []gltfNode{
			{Name: "root", Children: []int{1}, Skin: ptr(0)},
			{Name: "lift", Translation: &[3]float32{0, 1, 0}},
		},
		Accessors: []gltfAccessor{
			{BufferView: ptr(0), ComponentType: gltfComponentTypeFloat, Count: len(times), Type: gltfAccessorTypeScalar},
			{BufferView: ptr(1), ComponentType: gltfComponentTypeFloat, Count: len(ys), Type: gltfAccessorTypeVec3},
			{BufferView: ptr(2), ComponentType: gltfComponentTypeFloat, Count: 1, Type: gltfAccessorTypeMat4},
		},
		BufferViews: []gltfBufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: timesLen},
			{Buffer: 0, ByteOffset: timesLen, ByteLength: translationsLen},
			{Buffer: 0, ByteOffset: timesLen + translationsLen, ByteLength: 64},
		},
		Buffers: []gltfBuffer{{ByteLength: len(bin)}},
		Skins:   []gltfSkin{{Name: "lift_skin", InverseBindMatrices: ptr(2), Joints: []int{1}}},
		Animations: []gltfAnimation{{
			Name:     "lift",
			Channels: []gltfAnimChannel{{Sampler: 0, Target: gltfAnimTarget{Node: ptr(1), Path: gltfAnimPathTranslation}}},
			Samplers: []gltfAnimSampler{{Input: 0, Output: 1}},
		}},
	}
	return doc, bin
}

// encodeGLTF embeds bin as a base64 data URI and returns the JSON document.
func encodeGLTF(t testing.TB, doc gltfDocument, bin []byte) []byte {
	t.Helper()
	doc.Buffers[0].URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	return data
}

// encodeGLB packs doc and bin into a GLB container.
func encodeGLB(t testing.TB, doc gltfDocument, bin []byte) []byte {
	t.Helper()
	doc.Buffers[0].URI = ""
	js, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	var buf bytes.Buffer
	le := binary.LittleEndian
	total := 12 + 8 + len(js) + 8 + len(bin)
	_ = binary.Write(&buf, le, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)})
	_ = binary.Write(&buf, le, gltfGLBChunkHeader{ChunkLength: uint32(len(js)), ChunkType: gltfGLBChunkJSON})
	buf.Write(js)
	_ = binary.Write(&buf, le, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN})
	buf.Write(bin)
	return buf.Bytes()
}

// checkLiftModel plays the lift clip to t=5 and checks the pose and the skin's bone matrix.
func checkLiftModel(t *testing.T, m model.Model) {
	t.Helper()
	if have, want := m.Graph().Len(), 2; have != want {
		t.Fatalf("graph has %d nodes, want %d", have, want)
	}
	clip, err := m.Clip("lift")
	if err != nil {
		t.Fatalf("Clip: %v", err)
	}
	if clip.StartTime != 0 || clip.EndTime != 10 {
		t.Errorf("clip range = [%v, %v], want [0, 10]", clip.StartTime, clip.EndTime)
	}
	skin := m.Skin("lift_skin")
	if skin == nil {
		t.Fatal("skin lift_skin missing")
	}
	root, _ := m.Graph().Find("root")
	if skin.Node() != root {
		t.Errorf("skin node = %v, want root %v", skin.Node(), root)
	}
	if len(clip.BoneSkinMeshes) != 1 || clip.BoneSkinMeshes[0] != skin {
		t.Errorf("clip skins = %v, want [lift_skin]", clip.BoneSkinMeshes)
	}

	u, err := m.NewUpdater("lift")
	if err != nil {
		t.Fatalf("NewUpdater: %v", err)
	}
	u.Update(5, 1)

	lift, _ := m.Graph().Find("lift")
	if have, want := m.Graph().Local(lift), mgl32.Translate3D(0, 6, 0); !nearMat4(have, want, 1e-5) {
		t.Errorf("lift local = %v, want %v", have, want)
	}
	if have, want := skin.BoneMatrices()[0], mgl32.Translate3D(0, 5, 0); !nearMat4(have, want, 1e-5) {
		t.Errorf("bone matrix = %v, want %v", have, want)
	}
}

func TestLoadReaderGLTF(t *testing.T) {
	doc, bin := liftDocument(t, []float32{0, 10}, []float32{1, 11})
	l := NewLoader()

	m, err := l.LoadReader("lift", bytes.NewReader(encodeGLTF(t, doc, bin)), BackendTypeGLTF)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if have, want := m.Name(), "lift_scene"; have != want {
		t.Errorf("Name() = %q, want %q", have, want)
	}
	checkLiftModel(t, m)

	if l.Get("lift") != m {
		t.Error("Get did not return the cached model")
	}
}

func TestLoadReaderGLB(t *testing.T) {
	doc, bin := liftDocument(t, []float32{0, 10}, []float32{1, 11})

	m, err := NewLoader().LoadReader("lift", bytes.NewReader(encodeGLB(t, doc, bin)), BackendTypeGLB)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	checkLiftModel(t, m)
}

func TestLoadFileCaches(t *testing.T) {
	doc, bin := liftDocument(t, []float32{0, 10}, []float32{1, 11})
	dir := t.TempDir()
	path := filepath.Join(dir, "lift.gltf")
	if err := os.WriteFile(path, encodeGLTF(t, doc, bin), 0o644); err != nil {
		t.Fatal(err)
	}
	glbPath := filepath.Join(dir, "lift.glb")
	if err := os.WriteFile(glbPath, encodeGLB(t, doc, bin), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader()
	first, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := l.Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if first != second {
		t.Error("second Load did not return the cached model")
	}
	if _, err := l.Load(glbPath); err != nil {
		t.Fatalf("Load glb: %v", err)
	}

	models := l.Models()
	if len(models) != 2 || models[path] != first {
		t.Errorf("Models() = %v, want both paths with the cached model at %s", models, path)
	}
	delete(models, path)
	if l.Get(path) == nil {
		t.Error("mutating the Models() copy changed the cache")
	}
}

func TestLoadGLTFExternalBuffer(t *testing.T) {
	doc, bin := liftDocument(t, []float32{0, 10}, []float32{1, 11})
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lift.bin"), bin, 0o644); err != nil {
		t.Fatal(err)
	}
	doc.Buffers[0].URI = "lift.bin"
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "lift.gltf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	checkLiftModel(t, m)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := NewLoader().Load("rig.fbx")
	if err == nil || !strings.Contains(err.Error(), "unsupported model format: .fbx") {
		t.Errorf("Load(rig.fbx) error = %v, want unsupported model format", err)
	}
	_, err = NewLoader().LoadReader("x", strings.NewReader(""), LoaderBackendType(42))
	if err == nil {
		t.Error("LoadReader with an unknown backend type succeeded")
	}
}

func TestWithModel(t *testing.T) {
	m := model.NewModel(model.WithName("preset"))
	l := NewLoader(WithModel("preset", m))

	if l.Get("preset") != m {
		t.Error("Get did not return the preset model")
	}
	have, err := l.LoadReader("preset", strings.NewReader("not parsed"), BackendTypeYAML)
	if err != nil || have != m {
		t.Errorf("LoadReader on a cached name = (%v, %v), want the preset model", have, err)
	}
}

func TestGLTFErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc *gltfDocument, bin []byte) []byte
		want   error
	}{
		{
			name: "version",
			mutate: func(doc *gltfDocument, bin []byte) []byte {
				doc.Asset.Version = "1.0"
				return bin
			},
			want: errInvalidGLTFVersion,
		},
		{
			name: "cycle",
			mutate: func(doc *gltfDocument, bin []byte) []byte {
				doc.Nodes[1].Children = []int{0}
				return bin
			},
			want: errNodeHierarchy,
		},
		{
			name: "two parents",
			mutate: func(doc *gltfDocument, bin []byte) []byte {
				doc.Nodes = append(doc.Nodes, gltfNode{Name: "other", Children: []int{1}})
				return bin
			},
			want: errNodeHierarchy,
		},
		{
			name: "accessor out of bounds",
			mutate: func(doc *gltfDocument, bin []byte) []byte {
				doc.Accessors[1].Count = 50
				return bin
			},
			want: errAccessorOutOfBounds,
		},
		{
			name: "sparse accessor",
			mutate: func(doc *gltfDocument, bin []byte) []byte {
				doc.Accessors[0].Sparse = &gltfAccessorSparse{Count: 1}
				return bin
			},
			want: errSparseAccessor,
		},
		{
			name: "wrong accessor type",
			mutate: func(doc *gltfDocument, bin []byte) []byte {
				doc.Animations[0].Samplers[0].Input = 1
				return bin
			},
			want: errAccessorType,
		},
		{
			name: "short buffer",
			mutate: func(doc *gltfDocument, bin []byte) []byte {
				return bin[:len(bin)-4]
			},
			want: errBufferSizeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, bin := liftDocument(t, []float32{0, 10}, []float32{1, 11})
			bin = tt.mutate(&doc, bin)

			_, err := NewLoader().LoadReader("lift", bytes.NewReader(encodeGLTF(t, doc, bin)), BackendTypeGLTF)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGLTFUnsortedTimestamps(t *testing.T) {
	doc, bin := liftDocument(t, []float32{10, 0}, []float32{1, 11})

	_, err := NewLoader().LoadReader("lift", bytes.NewReader(encodeGLTF(t, doc, bin)), BackendTypeGLTF)
	if err == nil || !strings.Contains(err.Error(), "timestamps not ascending") {
		t.Errorf("error = %v, want timestamps not ascending", err)
	}
}

func TestGLBErrors(t *testing.T) {
	doc, bin := liftDocument(t, []float32{0, 10}, []float32{1, 11})
	glb := encodeGLB(t, doc, bin)

	badMagic := append([]byte(nil), glb...)
	badMagic[0] = 'x'
	if _, err := NewLoader().LoadReader("a", bytes.NewReader(badMagic), BackendTypeGLB); !errors.Is(err, errInvalidGLBMagic) {
		t.Errorf("bad magic error = %v, want %v", err, errInvalidGLBMagic)
	}
	if _, err := NewLoader().LoadReader("b", bytes.NewReader(glb[:8]), BackendTypeGLB); err == nil {
		t.Error("truncated header succeeded")
	}
	if _, err := NewLoader().LoadReader("c", bytes.NewReader(glb[:len(glb)-8]), BackendTypeGLB); err == nil {
		t.Error("truncated chunk succeeded")
	}
}

func TestGLTFNamingFallbacks(t *testing.T) {
	doc, bin := liftDocument(t, []float32{0, 10}, []float32{1, 11})
	doc.Scenes[0].Name = ""
	doc.Nodes[1].Name = ""
	doc.Skins[0].Name = ""
	doc.Animations[0].Name = ""

	m, err := NewLoader().LoadReader("lift", bytes.NewReader(encodeGLTF(t, doc, bin)), BackendTypeGLTF)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if have, want := m.Name(), "lift"; have != want {
		t.Errorf("Name() = %q, want %q", have, want)
	}
	if _, ok := m.Graph().Find("node_1"); !ok {
		t.Error("unnamed node not registered as node_1")
	}
	if m.Skin("skin_0") == nil {
		t.Error("unnamed skin not registered as skin_0")
	}
	if _, err := m.Clip("animation_0"); err != nil {
		t.Errorf("unnamed animation: %v", err)
	}
}

func TestGLTFSkipsWeightsAndEmptyChannels(t *testing.T) {
	doc, bin := liftDocument(t, []float32{0, 10}, []float32{1, 11})
	doc.Animations[0].Channels = append(doc.Animations[0].Channels,
		gltfAnimChannel{Sampler: 0, Target: gltfAnimTarget{Node: ptr(0), Path: gltfAnimPathWeights}},
		gltfAnimChannel{Sampler: 0, Target: gltfAnimTarget{Path: gltfAnimPathTranslation}},
	)

	m, err := NewLoader().LoadReader("lift", bytes.NewReader(encodeGLTF(t, doc, bin)), BackendTypeGLTF)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	clip, _ := m.Clip("lift")
	if have, want := len(clip.NodeAnimations), 1; have != want {
		t.Errorf("clip has %d tracks, want %d", have, want)
	}
}

func TestGLTFBracket(t *testing.T) {
	times := []float32{0, 1, 3}
	tests := []struct {
		t          float32
		step       bool
		wantIndex  int
		wantAmount float32
	}{
		{t: -1, wantIndex: 0, wantAmount: 0},
		{t: 0, wantIndex: 0, wantAmount: 0},
		{t: 2, wantIndex: 1, wantAmount: 0.5},
		{t: 2, step: true, wantIndex: 1, wantAmount: 0},
		{t: 3, wantIndex: 2, wantAmount: 0},
		{t: 4, wantIndex: 2, wantAmount: 0},
	}
	for _, tt := range tests {
		i, amount := gltfBracket(times, tt.t, tt.step)
		if i != tt.wantIndex || mgl32.Abs(amount-tt.wantAmount) > 1e-6 {
			t.Errorf("gltfBracket(%v, step=%v) = (%d, %v), want (%d, %v)", tt.t, tt.step, i, amount, tt.wantIndex, tt.wantAmount)
		}
	}
}

func TestGLTFKeyValues(t *testing.T) {
	cubic, err := gltfKeyValues([]int{1, 2, 3, 4, 5, 6}, 2, true)
	if err != nil {
		t.Fatalf("cubic: %v", err)
	}
	if len(cubic) != 2 || cubic[0] != 2 || cubic[1] != 5 {
		t.Errorf("cubic values = %v, want [2 5]", cubic)
	}
	if _, err := gltfKeyValues([]int{1, 2}, 1, true); err == nil {
		t.Error("short cubic output succeeded")
	}
	if _, err := gltfKeyValues([]int{1}, 2, false); err == nil {
		t.Error("short linear output succeeded")
	}
}

func TestMergeChannels(t *testing.T) {
	quarter := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	g := &gltfNodeChannels{
		translation: &gltfVec3Channel{times: []float32{0, 2}, values: []mgl32.Vec3{{0, 0, 0}, {2, 0, 0}}},
		rotation:    &gltfQuatChannel{times: []float32{1}, values: []mgl32.Quat{quarter}},
	}
	node := &gltfNode{Scale: &[3]float32{2, 2, 2}}

	frames := (&gltfAnimationExtractorImpl{}).mergeChannels(node, g)
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	for i, want := range []float32{0, 1, 2} {
		if frames[i].Time != want {
			t.Errorf("frame %d time = %v, want %v", i, frames[i].Time, want)
		}
		if frames[i].Scale != (mgl32.Vec3{2, 2, 2}) {
			t.Errorf("frame %d scale = %v, want rest scale", i, frames[i].Scale)
		}
		if !frames[i].Rotation.OrientationEqualThreshold(quarter, 1e-5) {
			t.Errorf("frame %d rotation = %v, want clamped %v", i, frames[i].Rotation, quarter)
		}
	}
	if have := frames[1].Translation; !have.ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("frame 1 translation = %v, want (1, 0, 0)", have)
	}
}

func TestReadNormalizedAccessor(t *testing.T) {
	doc := gltfDocument{
		Asset:       gltfAsset{Version: "2.0"},
		Accessors:   []gltfAccessor{{BufferView: ptr(0), ComponentType: gltfComponentTypeUnsignedByte, Normalized: true, Count: 3, Type: gltfAccessorTypeScalar}},
		BufferViews: []gltfBufferView{{Buffer: 0, ByteLength: 3}},
		Buffers:     []gltfBuffer{{ByteLength: 3}},
	}
	data := encodeGLTF(t, doc, []byte{0, 51, 255})

	p := newGLTFParser()
	if err := p.ParseReader(bytes.NewReader(data), false); err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	have, err := p.ReadScalarAccessor(0)
	if err != nil {
		t.Fatalf("ReadScalarAccessor: %v", err)
	}
	for i, want := range []float32{0, 0.2, 1} {
		if mgl32.Abs(have[i]-want) > 1e-6 {
			t.Errorf("value %d = %v, want %v", i, have[i], want)
		}
	}
}

func TestDecodeDataURI(t *testing.T) {
	if _, err := decodeDataURI("data:application/octet-stream"); !errors.Is(err, errInvalidBufferURI) {
		t.Errorf("missing comma error = %v, want %v", err, errInvalidBufferURI)
	}
	if _, err := decodeDataURI("data:text/plain,hello"); err == nil {
		t.Error("non-base64 data URI succeeded")
	}
	have, err := decodeDataURI("data:application/octet-stream;base64,AQID")
	if err != nil || !bytes.Equal(have, []byte{1, 2, 3}) {
		t.Errorf("decodeDataURI = (%v, %v), want [1 2 3]", have, err)
	}
}

func TestLoaderBackendTypeString(t *testing.T) {
	for typ, want := range map[LoaderBackendType]string{
		BackendTypeGLTF:       "gltf",
		BackendTypeGLB:        "glb",
		BackendTypeYAML:       "yaml",
		LoaderBackendType(42): "LoaderBackendType(42)",
	} {
		if have := typ.String(); have != want {
			t.Errorf("%d.String() = %q, want %q", int(typ), have, want)
		}
	}
}

func TestImportedSkinValidation(t *testing.T) {
	g := scene.NewGraph()
	imported := &model.ImportedModel{
		Name:  "broken",
		Graph: g,
		Skins: []scene.SkinMesh{scene.NewSkinMesh("s", scene.WithBones(scene.Bone{Node: scene.NodeID(7), InverseBind: mgl32.Ident4()}))},
	}
	if _, err := (&loader{}).importedToModel(imported); !errors.Is(err, scene.ErrInvalidNode) {
		t.Errorf("importedToModel error = %v, want %v", err, scene.ErrInvalidNode)
	}
}
