package ipc

import (
	"context"
	"fmt"
	"time"

	"github.com/nstehr/trackside/trackside-core/agent"
	"github.com/nstehr/trackside/trackside-core/device"
	"github.com/nstehr/trackside/trackside-core/model"
)

// RemoteDevice drives the device app over a Connection. Perception and
// taps are requests answered by the app; waits sleep locally.
type RemoteDevice struct {
	conn *Connection
	// Timeout bounds each request. Zero means no bound beyond ctx.
	Timeout time.Duration
	sleep   func(time.Duration)
}

var _ device.Device = (*RemoteDevice)(nil)

func NewRemoteDevice(conn *Connection, timeout time.Duration) *RemoteDevice {
	return &RemoteDevice{conn: conn, Timeout: timeout, sleep: time.Sleep}
}

func (d *RemoteDevice) call(ctx context.Context, msgType string, req, resp any) error {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	return d.conn.Call(ctx, msgType, req, resp)
}

func (d *RemoteDevice) FindMatch(ctx context.Context, template string, opts device.MatchOptions) (model.MatchResult, error) {
	var res model.MatchResult
	err := d.call(ctx, TypeFindMatch, FindMatchRequest{
		Template:      template,
		Tries:         opts.Tries,
		MinConfidence: opts.MinConfidence,
		Region:        opts.Region,
	}, &res)
	return res, err
}

func (d *RemoteDevice) FindAllMatches(ctx context.Context, template string, region model.Rect) ([]model.Location, error) {
	var res FindAllResult
	if err := d.call(ctx, TypeFindAll, FindAllRequest{Template: template, Region: region}, &res); err != nil {
		return nil, err
	}
	return res.Locations, nil
}

func (d *RemoteDevice) ReadText(ctx context.Context, region model.Rect) (string, float64, error) {
	var res ReadTextResult
	if err := d.call(ctx, TypeReadText, ReadTextRequest{Region: region}, &res); err != nil {
		return "", 0, err
	}
	return res.Text, res.Confidence, nil
}

func (d *RemoteDevice) Tap(ctx context.Context, x, y float64) error {
	return d.call(ctx, TypeTap, TapRequest{X: x, Y: y}, nil)
}

func (d *RemoteDevice) Wait(dur time.Duration) {
	d.sleep(dur)
}

func (d *RemoteDevice) status(ctx context.Context) (StatusResult, error) {
	var res StatusResult
	err := d.call(ctx, TypeStatus, nil, &res)
	return res, err
}

// CurrentTurn reports the trainee's turn number.
func (d *RemoteDevice) CurrentTurn(ctx context.Context) (int, error) {
	res, err := d.status(ctx)
	if err != nil {
		return 0, err
	}
	return res.Turn, nil
}

// Aptitudes reports the trainee's terrain and distance aptitudes.
func (d *RemoteDevice) Aptitudes(ctx context.Context) (model.Aptitudes, error) {
	res, err := d.status(ctx)
	if err != nil {
		return model.Aptitudes{}, err
	}
	apt := model.Aptitudes{
		Terrain:  make(map[model.Terrain]model.Aptitude, len(res.Terrain)),
		Distance: make(map[model.Distance]model.Aptitude, len(res.Distance)),
	}
	for k, v := range res.Terrain {
		t, err := model.ParseTerrain(k)
		if err != nil {
			return model.Aptitudes{}, fmt.Errorf("status: %w", err)
		}
		a, err := model.ParseAptitude(v)
		if err != nil {
			return model.Aptitudes{}, fmt.Errorf("status: %w", err)
		}
		apt.Terrain[t] = a
	}
	for k, v := range res.Distance {
		dist, err := model.ParseDistance(k)
		if err != nil {
			return model.Aptitudes{}, fmt.Errorf("status: %w", err)
		}
		a, err := model.ParseAptitude(v)
		if err != nil {
			return model.Aptitudes{}, fmt.Errorf("status: %w", err)
		}
		apt.Distance[dist] = a
	}
	return apt, nil
}

// ChooseTrainingOption asks the device app, which reads the event text,
// which training option to take.
func (d *RemoteDevice) ChooseTrainingOption(ctx context.Context, options []model.Location) (int, error) {
	var res ChooseOptionResult
	if err := d.call(ctx, TypeChooseOption, ChooseOptionRequest{Options: options}, &res); err != nil {
		return 0, err
	}
	return res.Index, nil
}

// Emit forwards a run event to the device's message log.
func (d *RemoteDevice) Emit(_ context.Context, e agent.Event) error {
	return d.conn.Send(TypeEvent, e)
}
