package statemachine

import (
	"github.com/pion/logging"
	"github.com/pkg/errors"

	"github.com/backkem/leaudio/pkg/ascs"
	"github.com/backkem/leaudio/pkg/audio"
	"github.com/backkem/leaudio/pkg/device"
)

// request is a start request, kept while the group is released first.
type request struct {
	target      ascs.State
	ctx         audio.Context
	metadataCtx audio.Context
	ccids       []uint8
}

// runtime is the per-group bookkeeping that is not part of the data model.
type runtime struct {
	watchdog   Timer
	generation uint64

	reported   bool
	lastStatus Status

	// reached is the last target state the group completed.
	reached ascs.State

	// releasing is set from the start of a release until it completes.
	releasing bool
	pending   *request

	cigRetried bool

	reconciling bool
	again       bool
}

// StateMachine drives groups. It is not safe for concurrent use.
type StateMachine struct {
	config Config
	groups *device.Groups
	rts    map[int]*runtime
	log    logging.LeveledLogger
}

// New creates a state machine.
func New(config Config) (*StateMachine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	s := &StateMachine{
		config: config,
		groups: config.Groups,
		rts:    make(map[int]*runtime),
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("leaudio-sm")
	}
	return s, nil
}

func (s *StateMachine) runtime(g *device.Group) *runtime {
	rt, ok := s.rts[g.ID]
	if !ok {
		rt = &runtime{}
		s.rts[g.ID] = rt
	}
	return rt
}

func (s *StateMachine) group(groupID int) (*device.Group, error) {
	g := s.groups.Get(groupID)
	if g == nil {
		return nil, errors.Wrapf(ErrGroupNotFound, "%d", groupID)
	}
	return g, nil
}

// LastStatus returns the last status reported for a group.
func (s *StateMachine) LastStatus(groupID int) (Status, bool) {
	rt, ok := s.rts[groupID]
	if !ok || !rt.reported {
		return 0, false
	}
	return rt.lastStatus, true
}

// StartStream configures the group for ctx and streams it. The metadata of
// the enabled ASEs carries metadataCtx (ctx when zero) and ccids (resolved
// from the CCID keeper when nil). Progress is reported through Callbacks.
func (s *StateMachine) StartStream(groupID int, ctx, metadataCtx audio.Context, ccids []uint8) error {
	g, err := s.group(groupID)
	if err != nil {
		return err
	}
	return s.start(g, request{
		target:      ascs.StateStreaming,
		ctx:         ctx,
		metadataCtx: metadataCtx,
		ccids:       ccids,
	})
}

// ConfigureStream is StartStream stopping at codec configuration.
func (s *StateMachine) ConfigureStream(groupID int, ctx, metadataCtx audio.Context) error {
	g, err := s.group(groupID)
	if err != nil {
		return err
	}
	return s.start(g, request{
		target:      ascs.StateCodecConfigured,
		ctx:         ctx,
		metadataCtx: metadataCtx,
	})
}

func (s *StateMachine) start(g *device.Group, req request) error {
	rt := s.runtime(g)

	if rt.releasing {
		if s.log != nil {
			s.log.Debugf("group %d: release in progress, %v request queued", g.ID, req.target)
		}
		rt.pending = &req
		g.PendingConfiguration = true
		return nil
	}

	cfgCtx, err := s.resolveContext(g, req.ctx)
	if err != nil {
		return err
	}
	cfg := g.SelectConfiguration(s.config.Provider.Configurations(cfgCtx), cfgCtx)
	if cfg == nil {
		return errors.Wrapf(ErrNoConfiguration, "group %d context %v", g.ID, cfgCtx)
	}

	mdCtx := req.metadataCtx
	if mdCtx == audio.ContextNone {
		mdCtx = req.ctx
	}
	ccids := req.ccids
	if ccids == nil && s.config.CCIDs != nil {
		ccids = s.config.CCIDs.CCIDs(mdCtx)
	}

	compatible := cfg.Equal(g.Configuration)
	progressed := s.pastCodecConfigured(g)

	if req.target == ascs.StateCodecConfigured && progressed {
		if compatible {
			return errors.Wrapf(ErrInvalidState, "group %d in %v", g.ID, g.State)
		}
	}

	if !compatible && progressed {
		if s.log != nil {
			s.log.Infof("group %d: reconfiguring %s -> %s", g.ID, g.Configuration.Name, cfg.Name)
		}
		rt.pending = &req
		g.PendingConfiguration = true
		s.release(g, false)
		return nil
	}

	if compatible && req.target == ascs.StateStreaming &&
		rt.reached == ascs.StateStreaming && g.TargetState == ascs.StateStreaming {
		s.updateMetadata(g, mdCtx, ccids)
		return nil
	}

	if !compatible {
		g.ClearActive()
	}
	if dirs := g.Activate(cfg, cfgCtx); cfg.Directions()&^dirs != 0 {
		g.ClearActive()
		return errors.Wrapf(ErrNoActiveAses, "group %d %s missing %v", g.ID, cfg.Name, cfg.Directions()&^dirs)
	}

	g.Configuration = cfg
	g.ConfigurationContext = cfgCtx
	g.MetadataContext = mdCtx
	g.CCIDs = ccids
	g.TargetState = req.target
	g.PendingConfiguration = false
	rt.pending = nil
	rt.cigRetried = false
	// A new request always reports its outcome.
	rt.reported = false

	if s.log != nil {
		s.log.Infof("group %d: %v -> %v with %s for %v", g.ID, g.State, req.target, cfg.Name, cfgCtx)
	}
	s.armWatchdog(g)
	s.reconcile(g)
	return nil
}

// pastCodecConfigured reports whether the group holds CIG resources or an
// ASE beyond codec configuration.
func (s *StateMachine) pastCodecConfigured(g *device.Group) bool {
	if g.CigState != device.CigStateNone {
		return true
	}
	past := false
	g.AllAses(func(_ *device.Device, a *device.Ase) bool {
		switch a.State {
		case ascs.StateQoSConfigured, ascs.StateEnabling, ascs.StateStreaming, ascs.StateDisabling:
			past = true
		}
		return !past
	})
	return past
}

// resolveContext picks the context used for configuration. Unknown
// availability (no PACS read yet) accepts any context.
func (s *StateMachine) resolveContext(g *device.Group, ctx audio.Context) (audio.Context, error) {
	avail := g.AvailableContexts()
	if avail == audio.ContextNone || avail.Any(ctx) {
		return ctx, nil
	}
	if fb := s.config.FallbackContext; fb != audio.ContextNone && avail.Any(fb) {
		if s.log != nil {
			s.log.Infof("group %d: %v not available, configuring for %v", g.ID, ctx, fb)
		}
		return fb, nil
	}
	return audio.ContextNone, errors.Wrapf(ErrContextNotAvailable, "group %d context %v", g.ID, ctx)
}

func (s *StateMachine) updateMetadata(g *device.Group, mdCtx audio.Context, ccids []uint8) {
	next := ascs.NewMetadata(mdCtx, ccids)
	if next.Equal(ascs.NewMetadata(g.MetadataContext, g.CCIDs)) {
		return
	}
	g.MetadataContext = mdCtx
	g.CCIDs = ccids

	for d := g.FirstActiveDevice(); d != nil; d = g.NextActiveDevice(d) {
		var ases []ascs.AseMetadata
		for _, a := range d.ActiveAses() {
			if a.Pending == 0 && (a.State == ascs.StateEnabling || a.State == ascs.StateStreaming) {
				ases = append(ases, ascs.AseMetadata{AseID: a.ID, Metadata: next.Encode()})
			}
		}
		if len(ases) > 0 {
			s.write(g, d, ascs.NewUpdateMetadata(ases...))
		}
	}
	s.reconcile(g)
}

// SuspendStream stops audio but keeps the ASEs QoS configured and the CIG
// allocated. It does nothing unless the group streams or is starting to.
func (s *StateMachine) SuspendStream(groupID int) error {
	g, err := s.group(groupID)
	if err != nil {
		return err
	}
	if g.TargetState != ascs.StateStreaming {
		return nil
	}

	g.TargetState = ascs.StateQoSConfigured
	if s.log != nil {
		s.log.Infof("group %d: suspending", g.ID)
	}
	s.report(g, StatusSuspending)
	s.armWatchdog(g)
	s.reconcile(g)
	return nil
}

// StopStream releases every ASE of the group and removes its CIG.
func (s *StateMachine) StopStream(groupID int) error {
	g, err := s.group(groupID)
	if err != nil {
		return err
	}
	rt := s.runtime(g)
	rt.pending = nil
	g.PendingConfiguration = false

	if !rt.releasing && g.TargetState == ascs.StateIdle && !g.HasActiveAses() && !s.pastCodecConfigured(g) {
		return nil
	}
	s.release(g, true)
	return nil
}

// release drives the group to Idle. Internal releases for reconfiguration
// do not report RELEASING.
func (s *StateMachine) release(g *device.Group, report bool) {
	rt := s.runtime(g)
	rt.releasing = true
	g.TargetState = ascs.StateIdle
	if s.log != nil {
		s.log.Infof("group %d: releasing", g.ID)
	}
	if report {
		s.report(g, StatusReleasing)
	}
	s.armWatchdog(g)
	s.reconcile(g)
}

// AttachToStream adds a connected device to a streaming group, using the
// CIS slots the configuration left free. The other devices are untouched.
func (s *StateMachine) AttachToStream(groupID int, address string) error {
	g, err := s.group(groupID)
	if err != nil {
		return err
	}
	if s.runtime(g).reached != ascs.StateStreaming || g.TargetState != ascs.StateStreaming {
		return errors.Wrapf(ErrNotStreaming, "group %d in %v", g.ID, g.State)
	}
	d := g.Device(address)
	if d == nil {
		return errors.Wrap(ErrDeviceNotFound, address)
	}
	if !d.IsConnected() {
		return errors.Wrap(ErrDeviceNotConnected, address)
	}
	if d.HasActiveAses() {
		return nil
	}
	if g.ActivateDevice(d, g.Configuration, g.ConfigurationContext) == 0 {
		return errors.Wrapf(ErrNoActiveAses, "%s for %s", address, g.Configuration.Name)
	}

	if s.log != nil {
		s.log.Infof("group %d: attaching %s", g.ID, address)
	}
	s.armWatchdog(g)
	s.reconcile(g)
	return nil
}

// ProcessAclDisconnected folds a lost ACL link into the group. The device's
// ASEs and CIS bindings are dropped; the group keeps streaming on the
// remaining devices or, when none is left, releases its CIG.
func (s *StateMachine) ProcessAclDisconnected(groupID int, address string) error {
	g, err := s.group(groupID)
	if err != nil {
		return err
	}
	d := g.Device(address)
	if d == nil {
		return errors.Wrap(ErrDeviceNotFound, address)
	}

	for _, a := range d.Ases() {
		if a.CisHandle != 0 {
			g.Pending.ClearHandle(a.CisHandle)
		}
	}
	g.UnassignCis(d)
	d.SetDisconnected()
	g.ReloadAudioLocations()
	g.ReloadAudioDirections()

	if s.log != nil {
		s.log.Infof("group %d: %s disconnected", g.ID, address)
	}

	if !g.HasActiveAses() && g.TargetState != ascs.StateIdle {
		rt := s.runtime(g)
		rt.pending = nil
		rt.releasing = true
		g.PendingConfiguration = false
		g.TargetState = ascs.StateIdle
		s.cancelWatchdog(g)
		s.reconcile(g)
		return nil
	}

	s.checkActivation(g)
	s.reconcile(g)
	s.streamConfigurationChanged(g)
	return nil
}

// streamConfigurationChanged refreshes the aggregate of a streaming group
// and tells the application when it changed.
func (s *StateMachine) streamConfigurationChanged(g *device.Group) {
	if s.runtime(g).reached != ascs.StateStreaming {
		return
	}
	if g.UpdateStreamConfiguration() && s.config.Callbacks != nil {
		s.config.Callbacks.OnStreamConfigurationUpdated(g.ID)
	}
}

func (s *StateMachine) report(g *device.Group, status Status) {
	rt := s.runtime(g)
	if rt.reported && rt.lastStatus == status {
		return
	}
	rt.reported = true
	rt.lastStatus = status
	if s.log != nil {
		s.log.Infof("group %d: %v", g.ID, status)
	}
	if s.config.Callbacks != nil {
		s.config.Callbacks.OnStatusReport(g.ID, status)
	}
}

func (s *StateMachine) armWatchdog(g *device.Group) {
	s.cancelWatchdog(g)
	rt := s.runtime(g)
	gen := rt.generation
	id := g.ID
	rt.watchdog = s.config.Scheduler.AfterFunc(s.config.TransitionTimeout, func() {
		s.onWatchdog(id, gen)
	})
}

func (s *StateMachine) cancelWatchdog(g *device.Group) {
	rt := s.runtime(g)
	rt.generation++
	if rt.watchdog != nil {
		rt.watchdog.Stop()
		rt.watchdog = nil
	}
}

func (s *StateMachine) onWatchdog(groupID int, gen uint64) {
	rt, ok := s.rts[groupID]
	if !ok || rt.generation != gen || rt.watchdog == nil {
		return
	}
	rt.watchdog = nil
	rt.generation++
	if s.log != nil {
		s.log.Errorf("group %d: state transition timed out", groupID)
	}
	if s.config.Callbacks != nil {
		s.config.Callbacks.OnStateTransitionTimeout(groupID)
	}
}
