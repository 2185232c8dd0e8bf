package face_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/facecap/face"
)

func mesh(n int) face.LandmarkSet {
	lm := make(face.LandmarkSet, n)
	for i := range lm {
		lm[i] = face.Point{X: float64(i) / 1000, Y: 0.5, Z: -0.01}
	}
	return lm
}

func TestClassifierUnknownFallsIntoOther(t *testing.T) {
	c := face.NewClassifier(face.DefaultGroups)

	assert.Equal(t, "EYE", c.GroupOf("eyeBlinkLeft"))
	assert.Equal(t, "CHEEK", c.GroupOf("cheekPuff"))
	assert.Equal(t, face.OtherGroup, c.GroupOf("_neutral"))
	assert.Equal(t, face.OtherGroup, c.GroupOf(""))
}

func TestClassifierFirstGroupWins(t *testing.T) {
	c := face.NewClassifier([]face.Group{
		{Name: "A", Channels: []string{"x"}},
		{Name: "B", Channels: []string{"x", "y"}},
	})
	assert.Equal(t, "A", c.GroupOf("x"))
	assert.Equal(t, "B", c.GroupOf("y"))
}

func TestGroupedKeepsEveryChannel(t *testing.T) {
	c := face.NewClassifier(face.DefaultGroups)
	g := c.Grouped(face.Signals{"jawOpen": 0.4, "eyeWideLeft": 0.1, "mystery": 0.9})

	require.Len(t, g, 3)
	assert.Equal(t, 0.4, g["MOUTH"]["jawOpen"])
	assert.Equal(t, 0.1, g["EYE"]["eyeWideLeft"])
	assert.Equal(t, 0.9, g[face.OtherGroup]["mystery"])
}

func TestRegionCoordsSkipsOutOfRange(t *testing.T) {
	r := face.Region{Name: "R", Indices: []int{1, 2, 900, -1, 3}}
	coords := r.Coords(mesh(4))

	require.Len(t, coords, 3)
	assert.Equal(t, face.Point{X: 0.001, Y: 0.5, Z: -0.01}, coords[0])
	assert.Equal(t, 0.003, coords[2].X)
}

func TestRegionCoordsEmptyMesh(t *testing.T) {
	coords := face.DefaultRegions[0].Coords(nil)
	assert.NotNil(t, coords)
	assert.Empty(t, coords)
}

func TestRegionCoordsRounds(t *testing.T) {
	lm := face.LandmarkSet{{X: 0.123456, Y: 0.98765, Z: -0.000049}}
	coords := face.Region{Indices: []int{0}}.Coords(lm)
	require.Len(t, coords, 1)
	assert.InDelta(t, 0.1235, coords[0].X, 1e-12)
	assert.InDelta(t, 0.9877, coords[0].Y, 1e-12)
	assert.InDelta(t, 0.0, coords[0].Z, 1e-12)
}

func TestRegionCenter(t *testing.T) {
	x, y, ok := face.Region{Indices: []int{0, 2}}.Center(mesh(3))
	require.True(t, ok)
	assert.InDelta(t, 0.001, x, 1e-12)
	assert.InDelta(t, 0.5, y, 1e-12)

	_, _, ok = face.Region{Indices: []int{7}}.Center(mesh(3))
	assert.False(t, ok)
}

func TestCheekDistances(t *testing.T) {
	lm := make(face.LandmarkSet, 10)
	lm[face.NoseTipIndex] = face.Point{X: 0.5, Y: 0.5}
	lm[1] = face.Point{X: 0.8, Y: 0.9} // 0.3,0.4 -> 0.5
	lm[2] = face.Point{X: 0.5, Y: 0.6} // 0.1

	d := face.CheekDistances(lm, []face.Region{
		{Name: "LEFT_CHEEK", Indices: []int{1, 2, 99}},
		{Name: "RIGHT_CHEEK", Indices: []int{50}},
	})

	assert.InDelta(t, 0.3, d["LEFT_CHEEK"], 1e-9)
	assert.Equal(t, 0.0, d["RIGHT_CHEEK"])
}

func TestCheekDistancesWithoutNose(t *testing.T) {
	assert.Nil(t, face.CheekDistances(mesh(3), face.DefaultRegions))
}

func TestFrameEmpty(t *testing.T) {
	assert.True(t, face.Frame{}.Empty())
	assert.False(t, face.Frame{Signals: face.Signals{"a": 1}}.Empty())
	assert.False(t, face.Frame{Landmarks: mesh(1)}.Empty())
}
