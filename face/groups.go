package face

// OtherGroup collects every channel that no group claims.
const OtherGroup = "OTHER"

// Group is a named set of blendshape channels.
type Group struct {
	Name     string   `yaml:"name"`
	Channels []string `yaml:"channels"`
}

// DefaultGroups follow the ARKit-style blendshape naming used by the detector.
var DefaultGroups = []Group{
	{"EYE", []string{
		"eyeBlinkLeft", "eyeBlinkRight",
		"eyeLookDownLeft", "eyeLookDownRight",
		"eyeLookInLeft", "eyeLookInRight",
		"eyeLookOutLeft", "eyeLookOutRight",
		"eyeLookUpLeft", "eyeLookUpRight",
		"eyeSquintLeft", "eyeSquintRight",
		"eyeWideLeft", "eyeWideRight",
	}},
	{"BROW", []string{
		"browDownLeft", "browDownRight",
		"browInnerUp",
		"browOuterUpLeft", "browOuterUpRight",
	}},
	{"MOUTH", []string{
		"jawForward", "jawLeft", "jawRight", "jawOpen",
		"mouthClose", "mouthFunnel", "mouthPucker",
		"mouthLeft", "mouthRight",
		"mouthSmileLeft", "mouthSmileRight",
		"mouthFrownLeft", "mouthFrownRight",
		"mouthDimpleLeft", "mouthDimpleRight",
		"mouthStretchLeft", "mouthStretchRight",
		"mouthRollLower", "mouthRollUpper",
		"mouthShrugLower", "mouthShrugUpper",
		"mouthPressLeft", "mouthPressRight",
		"mouthLowerDownLeft", "mouthLowerDownRight",
		"mouthUpperUpLeft", "mouthUpperUpRight",
	}},
	{"CHEEK", []string{"cheekPuff", "cheekSquintLeft", "cheekSquintRight"}},
	{"NOSE", []string{"noseSneerLeft", "noseSneerRight"}},
	{"HEAD", []string{"headRoll", "headPitch", "headYaw"}},
	{"TONGUE", []string{"tongueOut"}},
}

// Classifier maps a channel name to its group. It is read-only after
// construction and safe for concurrent use.
type Classifier struct {
	byName map[string]string
}

// NewClassifier builds the reverse index. When a channel is listed in more
// than one group the first group wins.
func NewClassifier(groups []Group) *Classifier {
	idx := make(map[string]string)
	for _, g := range groups {
		for _, ch := range g.Channels {
			if _, dup := idx[ch]; dup {
				continue
			}
			idx[ch] = g.Name
		}
	}
	return &Classifier{byName: idx}
}

// GroupOf returns the channel's group, or OtherGroup for unknown names.
func (c *Classifier) GroupOf(name string) string {
	if g, ok := c.byName[name]; ok {
		return g
	}
	return OtherGroup
}

// Grouped partitions signals as group -> name -> score. No channel is dropped.
func (c *Classifier) Grouped(s Signals) map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for name, score := range s {
		g := c.GroupOf(name)
		if out[g] == nil {
			out[g] = map[string]float64{}
		}
		out[g][name] = score
	}
	return out
}
