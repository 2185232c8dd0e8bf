package clients

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/facecap/face"
)

const maxLine = 4 << 20

var errNoFrames = errors.New("replay: no frames")

// Replay feeds recorded detector output, one FrameMsg JSON object per line.
type Replay struct {
	r io.Reader
	// Realtime sleeps between frames for the gap between their timestamps.
	Realtime bool
	sleep    func(ctx context.Context, d time.Duration) error
	log      *logrus.Entry
}

func NewReplay(r io.Reader, realtime bool) *Replay {
	return &Replay{
		r:        r,
		Realtime: realtime,
		sleep:    sleepCtx,
		log:      logrus.WithField("component", "replay"),
	}
}

// Stream delivers every decodable line to out, in file order. Malformed lines
// are skipped. It returns an error if the input held no frame at all.
func (rp *Replay) Stream(ctx context.Context, out func(face.Frame)) error {
	sc := bufio.NewScanner(rp.r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		line, frames int
		lastTs       int64
	)
	for sc.Scan() {
		line++
		if ctx.Err() != nil {
			return nil
		}
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var msg FrameMsg
		if err := json.Unmarshal(b, &msg); err != nil {
			rp.log.WithError(err).WithField("line", line).Warn("skipping malformed line")
			continue
		}
		if rp.Realtime && frames > 0 && msg.TimestampMs > lastTs {
			if err := rp.sleep(ctx, time.Duration(msg.TimestampMs-lastTs)*time.Millisecond); err != nil {
				return nil
			}
		}
		lastTs = msg.TimestampMs
		frames++
		out(msg.Frame())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("replay line %d: %w", line+1, err)
	}
	if frames == 0 {
		return errNoFrames
	}
	rp.log.WithField("frames", frames).Info("replay finished")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
