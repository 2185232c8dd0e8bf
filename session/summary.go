package session

import (
	"sort"

	"github.com/maastricht-university/facecap/face"
)

// ActiveThreshold hides near-zero channels from summaries.
const ActiveThreshold = 0.05

type ChannelScore struct {
	Name  string
	Score float64
}

type RegionCenter struct {
	Region string
	X, Y   float64
}

// Summary is the operator-facing digest of a snapshot.
type Summary struct {
	Active  map[string][]ChannelScore // group -> channels above ActiveThreshold, highest first
	Centers []RegionCenter            // by region name
}

// Summarize picks the active channels and region centers out of s.
func Summarize(s Snapshot) Summary {
	sum := Summary{Active: map[string][]ChannelScore{}}
	for group, items := range s.Blendshapes {
		var active []ChannelScore
		for name, v := range items {
			if v > ActiveThreshold {
				active = append(active, ChannelScore{name, v})
			}
		}
		if len(active) == 0 {
			continue
		}
		sort.Slice(active, func(i, j int) bool {
			if active[i].Score != active[j].Score {
				return active[i].Score > active[j].Score
			}
			return active[i].Name < active[j].Name
		})
		sum.Active[group] = active
	}

	for region, pts := range s.LandmarkRegions {
		if len(pts) == 0 {
			continue
		}
		var x, y float64
		for _, p := range pts {
			x += p.X
			y += p.Y
		}
		n := float64(len(pts))
		sum.Centers = append(sum.Centers, RegionCenter{region, face.Round3(x / n), face.Round3(y / n)})
	}
	sort.Slice(sum.Centers, func(i, j int) bool { return sum.Centers[i].Region < sum.Centers[j].Region })
	return sum
}
