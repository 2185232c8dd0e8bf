package orchestrator

import (
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/facecap/face"
	"github.com/maastricht-university/facecap/session"
)

func (p *Pipeline) traceCheeks(lm face.LandmarkSet, dist map[string]float64) {
	fields := logrus.Fields{}
	if face.NoseTipIndex < len(lm) {
		nose := lm[face.NoseTipIndex]
		fields["nose_x"] = face.Round3(nose.X)
		fields["nose_y"] = face.Round3(nose.Y)
	}
	for region, d := range dist {
		fields[region] = d
	}
	p.log.WithFields(fields).Info("cheek")
}

// logSummary prints the active channels and region centers of a snapshot.
func (p *Pipeline) logSummary(snap session.Snapshot, total int) {
	sum := session.Summarize(snap)
	log := p.log.WithField("snapshot", total)

	log.WithField("timestamp", snap.Timestamp.Format("15:04:05.000")).Info("snapshot taken")
	for region, d := range snap.CheekDistances {
		log.WithFields(logrus.Fields{"region": region, "distance": d}).Info("cheek distance")
	}
	for group, items := range sum.Active {
		fields := logrus.Fields{"group": group}
		for _, cs := range items {
			fields[cs.Name] = face.Round3(cs.Score)
		}
		log.WithFields(fields).Info("active channels")
	}
	for _, c := range sum.Centers {
		log.WithFields(logrus.Fields{"region": c.Region, "x": c.X, "y": c.Y}).Debug("region center")
	}
}
