package sim

import (
	"context"
	"sync"
	"time"

	"github.com/GroggNorvek/RaSpider/internal/telemetry"
	"github.com/GroggNorvek/RaSpider/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
	// CommandRejectInvalid marks a command without the payload its type needs.
	CommandRejectInvalid = "invalid"

	DefaultTickRate        = 60
	DefaultCommandCapacity = 256
	DefaultPerActorLimit   = 32
)

type LoopConfig struct {
	TickRate        int `yaml:"tickRate" json:"tickRate"`
	CommandCapacity int `yaml:"commandCapacity" json:"commandCapacity"`
	PerActorLimit   int `yaml:"perActorLimit" json:"perActorLimit"`
	WarningStep     int `yaml:"warningStep" json:"warningStep"`
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		TickRate:        DefaultTickRate,
		CommandCapacity: DefaultCommandCapacity,
		PerActorLimit:   DefaultPerActorLimit,
	}
}

func (c LoopConfig) Normalized() LoopConfig {
	out := c
	if out.TickRate <= 0 {
		out.TickRate = DefaultTickRate
	}
	if out.CommandCapacity <= 0 {
		out.CommandCapacity = DefaultCommandCapacity
	}
	if out.PerActorLimit < 0 {
		out.PerActorLimit = 0
	}
	if out.WarningStep < 0 {
		out.WarningStep = 0
	}
	return out
}

// Budget is the wall time one tick may take.
func (c LoopConfig) Budget() time.Duration {
	return time.Second / time.Duration(c.Normalized().TickRate)
}

// StepResult describes one completed tick.
type StepResult struct {
	Tick     uint64
	Commands []Command
	Outcomes []CommandOutcome
	Snapshot Snapshot
	Duration time.Duration
	Budget   time.Duration
}

type LoopHooks struct {
	AfterStep      func(StepResult)
	OnCommandDrop  func(reason string, cmd Command)
	OnQueueWarning func(length int)
}

// Loop stages commands from any goroutine and applies them to the world at
// the start of the next tick.
type Loop struct {
	world   *World
	buffer  *CommandBuffer
	config  LoopConfig
	hooks   LoopHooks
	logger  telemetry.Logger
	metrics telemetry.Metrics
	clock   logging.Clock

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64
}

func NewLoop(world *World, cfg LoopConfig, hooks LoopHooks, logger telemetry.Logger, metrics telemetry.Metrics) *Loop {
	if world == nil {
		return nil
	}
	cfg = cfg.Normalized()
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	return &Loop{
		world:         world,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, metrics),
		config:        cfg,
		hooks:         hooks,
		logger:        logger,
		metrics:       metrics,
		clock:         logging.ClockFunc(time.Now),
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// SetClock swaps the time source used to measure tick durations.
func (l *Loop) SetClock(clock logging.Clock) {
	if l == nil || clock == nil {
		return
	}
	l.clock = clock
}

func (l *Loop) World() *World {
	if l == nil {
		return nil
	}
	return l.world
}

func (l *Loop) Config() LoopConfig {
	if l == nil {
		return LoopConfig{}
	}
	return l.config
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// DrainCommands clears the staged command queue without advancing the world.
func (l *Loop) DrainCommands() []Command {
	if l == nil {
		return nil
	}
	return l.drainCommands()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	if !cmd.Valid() {
		l.reportDrop(CommandRejectInvalid, cmd, 0)
		return false, CommandRejectInvalid
	}
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = l.clock.Now()
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
			if cmd.ActorID != "" && l.perActorCount[cmd.ActorID] > 0 {
				l.perActorCount[cmd.ActorID]--
			}
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				l.queueMu.Unlock()
				l.warnQueue(length)
				return true, ""
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance applies the staged commands and steps the world once.
func (l *Loop) Advance(ctx context.Context) StepResult {
	if l == nil {
		return StepResult{}
	}
	start := l.clock.Now()
	commands := l.drainCommands()
	outcomes := l.world.Apply(ctx, commands)
	l.world.Step(ctx)
	return StepResult{
		Tick:     l.world.Tick(),
		Commands: commands,
		Outcomes: outcomes,
		Snapshot: l.world.Snapshot(),
		Duration: l.clock.Now().Sub(start),
		Budget:   l.config.Budget(),
	}
}

// Run drives the fixed-timestep loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	if l == nil {
		return
	}
	ticker := time.NewTicker(l.config.Budget())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result := l.Advance(ctx)
			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) warnQueue(length int) {
	if l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
	l.logger.Printf("[backpressure] command queue length=%d capacity=%d", length, l.buffer.Capacity())
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if l.metrics != nil {
		l.metrics.Add("sim_command_drop_"+reason+"_total", 1)
	}
	// Log on powers of two so a flooding actor cannot flood the log too.
	if count > 0 && count&(count-1) == 0 {
		l.logger.Printf(
			"[backpressure] dropping command actor=%s type=%s reason=%s count=%d limit=%d",
			cmd.ActorID,
			cmd.Type,
			reason,
			count,
			l.config.PerActorLimit,
		)
	}
}
