package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"gopkg.in/yaml.v3"
)

type dumpModel struct {
	Model string     `yaml:"model"`
	Skins []dumpSkin `yaml:"skins"`
}

type dumpSkin struct {
	Name  string     `yaml:"name"`
	Bones []dumpBone `yaml:"bones"`
}

type dumpBone struct {
	Node string `yaml:"node"`
	// Column-major, as stored by mgl32.
	Matrix []float32 `yaml:"matrix,flow"`
}

// collectDump snapshots the current bone matrices of every skin of every model.
func collectDump(models []model.Model) []dumpModel {
	out := make([]dumpModel, 0, len(models))
	for _, m := range models {
		dm := dumpModel{Model: m.Name()}
		g := m.Graph()
		for _, s := range m.Skins() {
			ds := dumpSkin{Name: s.Name()}
			packed := common.FlattenMat4s(nil, s.BoneMatrices())
			for i, b := range s.Bones() {
				db := dumpBone{Node: g.NodeName(b.Node)}
				if end := (i + 1) * 16; end <= len(packed) {
					db.Matrix = packed[i*16 : end : end]
				}
				ds.Bones = append(ds.Bones, db)
			}
			dm.Skins = append(dm.Skins, ds)
		}
		out = append(out, dm)
	}
	return out
}

func encodeDump(w io.Writer, models []model.Model) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(collectDump(models)); err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	return enc.Close()
}

// writeDump writes the bone matrix dump to path, or to stdout when path is "-".
func writeDump(path string, models []model.Model) error {
	if path == "-" {
		return encodeDump(os.Stdout, models)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dump: %w", err)
	}
	if err := encodeDump(f, models); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
