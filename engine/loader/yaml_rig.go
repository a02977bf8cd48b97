// yaml_rig.go defines the YAML rig format: a hand-writable description of a node
// hierarchy, its skins and its clips.
//
//	name: arm
//	nodes:
//	  - name: root
//	  - name: upper
//	    parent: root
//	    translation: [0, 1, 0]
//	skins:
//	  - name: sleeve
//	    node: root
//	    bones:
//	      - node: upper
//	clips:
//	  - name: raise
//	    tracks:
//	      - node: upper
//	        keys:
//	          - time: 0
//	          - time: 1
//	            rotation: [0.7071068, 0, 0, 0.7071068]
//
// Rotations are quaternions in x, y, z, w order. A bone without inverseBind is bound in the
// rest pose. A key component that is left out takes the node's rest value. A clip without
// start and end spans its keys, and a clip without skins drives every skin with an animated
// bone.
package loader

type yamlRig struct {
	Name  string     `yaml:"name"`
	Nodes []yamlNode `yaml:"nodes"`
	Skins []yamlSkin `yaml:"skins"`
	Clips []yamlClip `yaml:"clips"`
}

type yamlNode struct {
	Name        string       `yaml:"name"`
	Parent      string       `yaml:"parent"`
	Matrix      *[16]float32 `yaml:"matrix"`
	Translation *[3]float32  `yaml:"translation"`
	Rotation    *[4]float32  `yaml:"rotation"`
	Scale       *[3]float32  `yaml:"scale"`
}

type yamlSkin struct {
	Name       string     `yaml:"name"`
	Node       string     `yaml:"node"`
	Bones      []yamlBone `yaml:"bones"`
	BoneGroup  bool       `yaml:"boneGroup"`
	Renderable *bool      `yaml:"renderable"`
}

type yamlBone struct {
	Node        string       `yaml:"node"`
	InverseBind *[16]float32 `yaml:"inverseBind"`
}

type yamlClip struct {
	Name   string      `yaml:"name"`
	Start  *float32    `yaml:"start"`
	End    *float32    `yaml:"end"`
	Skins  []string    `yaml:"skins"`
	Tracks []yamlTrack `yaml:"tracks"`
}

type yamlTrack struct {
	Node string    `yaml:"node"`
	Keys []yamlKey `yaml:"keys"`
}

type yamlKey struct {
	Time        float32     `yaml:"time"`
	Scale       *[3]float32 `yaml:"scale"`
	Rotation    *[4]float32 `yaml:"rotation"`
	Translation *[3]float32 `yaml:"translation"`
}
