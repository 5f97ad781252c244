package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pkg/errors"

	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/engine"
	"github.com/backkem/leaudio/pkg/gatt"
	"github.com/backkem/leaudio/pkg/sim"
	"github.com/backkem/leaudio/pkg/statemachine"
)

const groupID = 1

var locations = []audio.Location{audio.LocationFrontLeft, audio.LocationFrontRight}

var errTimeout = errors.New("state transition timed out")

type event struct {
	status  statemachine.Status
	timeout bool
}

// reporter prints the group callbacks and forwards them to the scenario.
type reporter struct {
	mu     sync.Mutex
	out    io.Writer
	events chan event
}

func (r *reporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *reporter) OnStatusReport(groupID int, status statemachine.Status) {
	r.printf("group %d: %v\n", groupID, status)
	r.events <- event{status: status}
}

func (r *reporter) OnStateTransitionTimeout(groupID int) {
	r.printf("group %d: transition timed out\n", groupID)
	r.events <- event{timeout: true}
}

func (r *reporter) OnStreamConfigurationUpdated(groupID int) {
	r.printf("group %d: stream configuration updated\n", groupID)
}

type scenario struct {
	opts     Options
	engine   *engine.Engine
	ctrl     *sim.Controller
	reporter *reporter
	pipes    []*gatt.Pipe
}

// Run plays the scenario described by opts and writes its progress to out.
func Run(opts Options, out io.Writer) error {
	lf := logging.NewDefaultLoggerFactory()
	lf.DefaultLogLevel = logging.LogLevelWarn
	if opts.Verbose {
		lf.DefaultLogLevel = logging.LogLevelDebug
	}

	s := &scenario{
		opts:     opts,
		ctrl:     sim.NewController(sim.ControllerConfig{LoggerFactory: lf}),
		reporter: &reporter{out: out, events: make(chan event, 32)},
	}
	defer s.close()

	if opts.DisallowOnce {
		s.ctrl.AddStaleCig(groupID)
	}

	e, err := engine.New(engine.Config{
		Controller:        s.ctrl,
		TransitionTimeout: opts.Timeout,
		Callbacks:         s.reporter,
		LoggerFactory:     lf,
	})
	if err != nil {
		return err
	}
	s.engine = e
	s.ctrl.SetHandler(e)
	if err := e.Start(); err != nil {
		return err
	}

	for i := 0; i < opts.Devices; i++ {
		if err := s.addEarbud(i, lf); err != nil {
			return err
		}
	}

	steps := []struct {
		name string
		run  func() error
		want []statemachine.Status
	}{
		{"start", func() error { return e.StartStream(groupID, opts.Context) }, []statemachine.Status{statemachine.StatusStreaming}},
		{"suspend", func() error { return e.SuspendStream(groupID) }, []statemachine.Status{statemachine.StatusSuspended}},
		{"resume", func() error { return e.StartStream(groupID, opts.Context) }, []statemachine.Status{statemachine.StatusStreaming}},
		{"stop", func() error { return e.StopStream(groupID) }, []statemachine.Status{statemachine.StatusIdle, statemachine.StatusConfiguredAutonomous}},
	}
	for _, step := range steps {
		s.reporter.printf("-- %s %v\n", step.name, opts.Context)
		if err := step.run(); err != nil {
			return errors.Wrap(err, step.name)
		}
		if err := s.await(step.want...); err != nil {
			return errors.Wrap(err, step.name)
		}
		if err := s.printGroup(); err != nil {
			return err
		}
	}
	return nil
}

func (s *scenario) addEarbud(i int, lf logging.LoggerFactory) error {
	address := fmt.Sprintf("earbud-%d", i)
	avail := audio.DirectionalContexts{
		Sink:   audio.ContextMedia | audio.ContextConversational | audio.ContextRingtone,
		Source: audio.ContextConversational,
	}
	p := sim.NewPeripheral(sim.PeripheralConfig{
		Address:          address,
		Sinks:            1,
		Sources:          1,
		Locations:        locations[i],
		Available:        avail,
		Supported:        avail,
		CacheCodecConfig: s.opts.Cache,
		LoggerFactory:    lf,
	})

	pipe := gatt.NewPipe()
	s.pipes = append(s.pipes, pipe)
	p.Serve(pipe.ServerConn(), lf)

	acl := uint16(0x40 + i)
	s.ctrl.Attach(acl, p)
	return s.engine.Connect(engine.PeerConfig{
		GroupID:    groupID,
		Address:    address,
		AclHandle:  acl,
		Conn:       pipe.ClientConn(),
		Attributes: p.Attributes(),
		Values:     p.ReadValues(),
	})
}

// await waits for one of the wanted statuses.
func (s *scenario) await(want ...statemachine.Status) error {
	deadline := time.After(s.opts.Timeout + time.Second)
	for {
		select {
		case ev := <-s.reporter.events:
			if ev.timeout {
				return errTimeout
			}
			for _, w := range want {
				if ev.status == w {
					return nil
				}
			}
		case <-deadline:
			return errors.Wrapf(errTimeout, "waiting for %v", want)
		}
	}
}

func (s *scenario) printGroup() error {
	snap, err := s.engine.Snapshot(groupID)
	if err != nil {
		return err
	}
	cfg := snap.Configuration
	if cfg == "" {
		cfg = "none"
	}
	s.reporter.printf("   state %v, configuration %s\n", snap.State, cfg)
	for _, d := range snap.Devices {
		var ases []string
		for _, a := range d.Ases {
			mark := ""
			if a.Active {
				mark = "*"
			}
			ases = append(ases, fmt.Sprintf("%d:%v:%v%s", a.ID, a.Direction, a.State, mark))
		}
		s.reporter.printf("   %s %s\n", d.Address, strings.Join(ases, " "))
	}
	return nil
}

func (s *scenario) close() {
	if s.engine != nil {
		s.engine.Stop()
	}
	s.ctrl.Close()
	for _, p := range s.pipes {
		p.Close()
	}
}
