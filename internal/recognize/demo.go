package recognize

import (
	"context"
	"time"
)

// Demo fabricates a fixed result after a delay. It never looks at the image.
type Demo struct {
	Delay time.Duration
	Text  string
}

func (d Demo) Recognize(ctx context.Context, _ []byte) (string, error) {
	if d.Delay > 0 {
		t := time.NewTimer(d.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return d.Text, nil
}
