// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/killerppo/N.E.K.O/internal/endpoint"
	"github.com/killerppo/N.E.K.O/internal/model"
	"github.com/killerppo/N.E.K.O/internal/similarity"
)

// defaultImagePrompt substitutes for empty text when images are pending,
// so a multimodal turn is never content-free.
const defaultImagePrompt = "请分析这些图片。"

// systemMessagePrefix marks ad-hoc instructions routed through
// CreateResponse; the prefix is stripped before the turn is committed.
const systemMessagePrefix = "SYSTEM_MESSAGE | "

// =============================================================================
// CALLBACKS
// =============================================================================

// Callbacks is the event surface a host wires into a session. Every
// field is optional; nil callbacks are skipped.
type Callbacks struct {
	// OnTextDelta receives each streamed output fragment. isFirstChunk
	// is true for the first non-empty emission of the turn.
	OnTextDelta func(fragment string, isFirstChunk bool)

	// OnInputTranscript echoes the committed user text.
	OnInputTranscript func(text string)

	// OnConnectionError receives transient-retry notices and fatal
	// failure reports. The caller never sees a raw transport error.
	OnConnectionError func(message string)

	// OnResponseDone fires exactly once per terminal turn outcome.
	OnResponseDone func()

	// OnRepetitionDetected fires when three consecutive highly similar
	// replies trip the repetition remediation.
	OnRepetitionDetected func()

	// OnResponseRewritten fires when an over-length reply was
	// successfully condensed.
	OnResponseRewritten func(text string, originalLength, rewrittenLength int)
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a session beyond the primary endpoint.
type Options struct {
	// Vision is the endpoint config promoted to when image content is
	// submitted. Unset fields fall back to the primary config; an
	// empty Model disables promotion.
	Vision endpoint.Config

	// Rewrite names the secondary endpoint used to condense
	// over-length replies. Nil disables the rewrite pipeline.
	Rewrite *RewriteConfig

	// Callbacks is the host event surface.
	Callbacks Callbacks

	// MaxResponseLength is the measured-length threshold above which a
	// reply is rewritten. Defaults to DefaultMaxResponseLength.
	MaxResponseLength int

	// RewriteTimeout bounds the rewrite call. Defaults to
	// DefaultRewriteTimeout.
	RewriteTimeout time.Duration

	// RepetitionThreshold is the similarity score at or above which
	// two replies count as repeats. Defaults to
	// DefaultRepetitionThreshold.
	RepetitionThreshold float64

	// Scorer measures reply similarity. Defaults to
	// similarity.DiceScorer.
	Scorer similarity.Scorer

	// RequestsPerMinute enables client-side request pacing when
	// positive. Zero means unlimited.
	RequestsPerMinute int

	// Logger receives session diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// =============================================================================
// SESSION
// =============================================================================

// Session manages one logical conversation against a chat-completion
// endpoint. All mutable state is owned by the session and touched only
// from the active turn's control flow; sessions are not reentrant.
type Session struct {
	id     string
	logger *slog.Logger

	cfg       endpoint.Config
	visionCfg endpoint.Config
	client    *endpoint.Client
	promoted  bool

	history *model.History
	images  imageQueue

	callbacks Callbacks

	// responding is the cooperative "still responding" flag; Cancel
	// clears it and the stream loop observes it at fragment
	// boundaries.
	responding atomic.Bool

	rewriteCfg        *RewriteConfig
	maxResponseLength int
	rewriteTimeout    time.Duration

	recent              replyBuffer
	scorer              similarity.Scorer
	repetitionThreshold float64

	// retryDelays are the backoff waits applied between transient
	// failures; attempts total len(retryDelays)+1. Tests shorten them.
	retryDelays []time.Duration

	newClient func(endpoint.Config) *endpoint.Client
}

// NewSession creates a session bound to the primary endpoint config.
func NewSession(primary endpoint.Config, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = similarity.DiceScorer{}
	}
	maxLen := opts.MaxResponseLength
	if maxLen <= 0 {
		maxLen = DefaultMaxResponseLength
	}
	rewriteTimeout := opts.RewriteTimeout
	if rewriteTimeout <= 0 {
		rewriteTimeout = DefaultRewriteTimeout
	}
	threshold := opts.RepetitionThreshold
	if threshold <= 0 {
		threshold = DefaultRepetitionThreshold
	}

	s := &Session{
		id:                  uuid.NewString(),
		logger:              logger,
		cfg:                 primary,
		visionCfg:           opts.Vision,
		history:             &model.History{},
		callbacks:           opts.Callbacks,
		rewriteCfg:          opts.Rewrite,
		maxResponseLength:   maxLen,
		rewriteTimeout:      rewriteTimeout,
		scorer:              scorer,
		repetitionThreshold: threshold,
		retryDelays:         []time.Duration{time.Second, 2 * time.Second},
	}
	s.newClient = func(cfg endpoint.Config) *endpoint.Client {
		client := endpoint.NewClient(cfg).WithLogger(logger)
		if opts.RequestsPerMinute > 0 {
			client = client.WithRateLimit(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
		}
		return client
	}
	s.client = s.newClient(primary)
	return s
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Connect initializes the session with system instructions, replacing
// any previous history.
func (s *Session) Connect(instructions string) {
	s.history = model.NewHistory(instructions)
	s.logger.Info("session initialized", "session_id", s.id, "model", s.cfg.Model)
}

// UpdateSystemInstructions replaces the system turn in place. A history
// without a leading system turn is left unchanged.
func (s *Session) UpdateSystemInstructions(text string) {
	s.history.UpdateSystemInstructions(text)
}

// CreateResponse appends an ad-hoc system turn, stripping the
// SYSTEM_MESSAGE prefix if present. Blank instructions are dropped.
func (s *Session) CreateResponse(instructions string) {
	instructions = strings.TrimPrefix(instructions, systemMessagePrefix)
	if strings.TrimSpace(instructions) == "" {
		return
	}
	s.history.AppendSystem(instructions)
}

// Close drops all session state: history, pending images, and the
// recent-reply buffer.
func (s *Session) Close() {
	s.responding.Store(false)
	s.history.Clear()
	s.images.drain()
	s.recent.clear()
	s.logger.Info("session closed", "session_id", s.id)
}

// =============================================================================
// IMAGES / PROMOTION
// =============================================================================

// EnqueueImage stages a base64 image payload for the next user turn.
// Empty payloads are a no-op.
func (s *Session) EnqueueImage(payload string) {
	if !s.images.enqueue(payload) {
		return
	}
	s.logger.Info("image staged for next turn", "pending", s.images.size())
}

// HasPendingImages reports whether images are staged for the next turn.
func (s *Session) HasPendingImages() bool {
	return s.images.hasPending()
}

// promoteForVision switches the active endpoint config to the vision
// variant. The switch is one-way for the session: once multimodal
// content is committed to history, the original model's endpoint may
// not accept it, so there is no path back.
func (s *Session) promoteForVision() {
	if s.visionCfg.Model == "" || s.visionCfg.Model == s.cfg.Model {
		return
	}
	next := s.visionCfg
	if next.BaseURL == "" {
		next.BaseURL = s.cfg.BaseURL
	}
	if next.APIKey == "" {
		next.APIKey = s.cfg.APIKey
	}
	if next.Temperature == 0 {
		next.Temperature = s.cfg.Temperature
	}
	next.Stream = s.cfg.Stream

	s.logger.Info("promoting to vision model", "from", s.cfg.Model, "to", next.Model)
	s.cfg = next
	s.client = s.newClient(next)
	s.promoted = true
}

// ActiveModel returns the model identifier currently in use.
func (s *Session) ActiveModel() string {
	return s.cfg.Model
}

// Promoted reports whether the session has switched to the vision
// config. Promotion never reverts within a session.
func (s *Session) Promoted() bool {
	return s.promoted
}

// =============================================================================
// INTERRUPTION
// =============================================================================

// Cancel clears the responding flag so an in-flight stream loop exits at
// its next fragment boundary. Safe and idempotent when no turn is active.
func (s *Session) Cancel() {
	s.responding.Store(false)
}

// HandleInterruption cancels the current response if one is active.
func (s *Session) HandleInterruption() {
	if !s.responding.Load() {
		return
	}
	s.logger.Info("handling interruption", "session_id", s.id)
	s.Cancel()
}

// IsResponding reports whether a turn is currently streaming.
func (s *Session) IsResponding() bool {
	return s.responding.Load()
}

// =============================================================================
// HISTORY ACCESS
// =============================================================================

// History returns the session's turn log.
func (s *Session) History() *model.History {
	return s.history
}

// reportError delivers a failure message through the error callback.
func (s *Session) reportError(message string) {
	if cb := s.callbacks.OnConnectionError; cb != nil {
		cb(message)
	}
}

// emitDelta delivers one output fragment through the text-delta callback.
func (s *Session) emitDelta(fragment string, first bool) {
	if cb := s.callbacks.OnTextDelta; cb != nil {
		cb(fragment, first)
	}
}
