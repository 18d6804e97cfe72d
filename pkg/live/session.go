// Package live maintains one logical conversation with the Gemini Live API
// for the duration of an active phase. A logical session may span several
// websocket connections: the server periodically forces disconnects (go-away)
// and networks fail, so Run reconnects with a resumption handle and the
// conversation continues where it left off.
package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/reachy-companion/internal/log"
)

// Status is a lifecycle notification for observability.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// Usage carries token counters reported by the server.
type Usage struct {
	PromptTokens   int
	ResponseTokens int
	TotalTokens    int
}

// ToolCallHandler executes a model-issued tool call and returns the result
// string relayed back to the model.
type ToolCallHandler func(ctx context.Context, name string, args map[string]any) (string, error)

// reconnectReason says why the current connection must be replaced.
type reconnectReason int

const (
	reasonTransient reconnectReason = iota
	reasonGoAway
)

// Session is one logical Live conversation. Construct with New, set
// callbacks, then call Run exactly once; EnqueueAudio, EnqueueImage and
// NextPlaybackChunk may be used concurrently while Run is active.
type Session struct {
	cfg Config

	onToolCall   ToolCallHandler
	onStatus     func(Status)
	onTranscript func(speaker, text string, final bool)
	onUsage      func(Usage)

	out      *sendQueue
	playback chan []byte
	closed   sync.Once

	mu           sync.Mutex
	resumeHandle string

	reconnect chan reconnectReason
	bo        *backoff
}

// New creates a session with the given configuration.
func New(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		cfg:       cfg,
		out:       newSendQueue(),
		playback:  make(chan []byte, 64),
		reconnect: make(chan reconnectReason, 1),
		bo:        newBackoff(backoffFloor, backoffCap),
	}, nil
}

// OnToolCall sets the tool call handler. An error from the handler is turned
// into an "Error: ..." result string; it never aborts the session.
func (s *Session) OnToolCall(fn ToolCallHandler) {
	s.onToolCall = fn
}

// OnStatus sets the status callback. It is invoked inline and must not block.
func (s *Session) OnStatus(fn func(Status)) {
	s.onStatus = fn
}

// OnTranscript sets the transcript callback. Fragments for a speaker arrive
// in delivery order; the consumer accumulates until final is true.
func (s *Session) OnTranscript(fn func(speaker, text string, final bool)) {
	s.onTranscript = fn
}

// OnUsage sets the callback for server-reported token usage.
func (s *Session) OnUsage(fn func(Usage)) {
	s.onUsage = fn
}

// EnqueueAudio appends a PCM16 16kHz mono block to the outbound queue.
// Never blocks; delivery timing is not guaranteed.
func (s *Session) EnqueueAudio(pcm []byte) {
	s.out.Push(Item{Kind: KindAudio, Data: pcm})
}

// EnqueueImage appends a JPEG frame to the outbound queue.
func (s *Session) EnqueueImage(jpeg []byte) {
	s.out.Push(Item{Kind: KindImage, Data: jpeg})
}

// NextPlaybackChunk blocks until the next inbound 24kHz PCM16 chunk is
// available. Returns ErrSessionClosed once Run has finished.
func (s *Session) NextPlaybackChunk(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case chunk, ok := <-s.playback:
		if !ok {
			return nil, ErrSessionClosed
		}
		return chunk, nil
	}
}

// ResumptionHandle returns the current resumption token, empty before the
// server has issued one.
func (s *Session) ResumptionHandle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumeHandle
}

// Run is the session lifecycle: connect, relay, reconnect. It returns nil
// when ctx is cancelled or the bounded reconnect attempts are exhausted, and
// returns the error itself when it is permanent (bad credentials, quota,
// malformed configuration).
func (s *Session) Run(ctx context.Context) error {
	defer s.closed.Do(func() { close(s.playback) })

	attempts := 0
	connectedOnce := false

	for {
		if ctx.Err() != nil {
			return nil
		}

		if connectedOnce {
			s.status(StatusReconnecting)
		} else {
			s.status(StatusConnecting)
		}

		conn, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if IsPermanent(err) {
				return err
			}
			attempts++
			log.Warn("live connect failed", "attempt", attempts, "error", err)
			if attempts >= maxConnectAttempts {
				log.Error("live: reconnect attempts exhausted")
				return nil
			}
			if !s.sleep(ctx, s.bo.Next()) {
				return nil
			}
			continue
		}

		attempts = 0
		s.bo.Reset()
		connectedOnce = true
		s.status(StatusConnected)
		log.Info("live session connected", "model", s.cfg.model())

		reason, stopped := s.serve(ctx, conn)
		conn.Close()

		if stopped {
			log.Info("live session stopped")
			return nil
		}

		if reason == reasonGoAway {
			// Server-scheduled disconnect: reconnect immediately, the
			// resumption handle carries the conversation over.
			log.Info("live: go-away received, reconnecting")
			continue
		}

		attempts++
		if attempts >= maxConnectAttempts {
			log.Error("live: reconnect attempts exhausted")
			return nil
		}
		if !s.sleep(ctx, s.bo.Next()) {
			return nil
		}
	}
}

// connect dials the endpoint and sends the setup message.
func (s *Session) connect(ctx context.Context) (*wsConn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.handshakeTimeout(),
	}

	url := fmt.Sprintf("%s?key=%s", s.cfg.endpoint(), s.cfg.APIKey)
	raw, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("live: connect failed: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("live: connect failed: %w", err)
	}

	conn := &wsConn{conn: raw}
	if err := conn.WriteJSON(clientMessage{Setup: s.buildSetup()}); err != nil {
		raw.Close()
		return nil, fmt.Errorf("live: setup failed: %w", err)
	}
	return conn, nil
}

// buildSetup assembles the per-connection configuration. The previous
// resumption handle is included when present, absent on the first connect.
func (s *Session) buildSetup() *setupMessage {
	setup := &setupMessage{
		Model: s.cfg.model(),
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: &voiceConfig{
					PrebuiltVoiceConfig: &prebuiltVoice{VoiceName: s.cfg.voice()},
				},
			},
		},
		SessionResumption:        &sessionResumption{},
		ContextWindowCompression: &contextCompression{SlidingWindow: &slidingWindow{}},
		InputAudioTranscription:  &struct{}{},
		OutputAudioTranscription: &struct{}{},
	}

	if s.cfg.SystemPrompt != "" {
		setup.SystemInstruction = &contentBlock{
			Parts: []part{{Text: s.cfg.SystemPrompt}},
		}
	}

	if len(s.cfg.Tools) > 0 {
		decls := make([]functionDeclaration, 0, len(s.cfg.Tools))
		for _, t := range s.cfg.Tools {
			decls = append(decls, functionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			})
		}
		setup.Tools = []toolBlock{{FunctionDeclarations: decls}}
	}

	if handle := s.ResumptionHandle(); handle != "" {
		setup.SessionResumption.Handle = handle
	}

	return setup
}

// serve runs the sender and receiver loops over one connection until the
// outer context is cancelled or an internal reconnect is signalled. The
// second return value is true when the stop signal won.
func (s *Session) serve(ctx context.Context, conn *wsConn) (reconnectReason, bool) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Drop a stale signal from the previous connection.
	select {
	case <-s.reconnect:
	default:
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.senderLoop(connCtx, conn)
	}()
	go func() {
		defer wg.Done()
		s.receiverLoop(connCtx, conn)
	}()

	var reason reconnectReason
	stopped := false
	select {
	case <-ctx.Done():
		stopped = true
	case reason = <-s.reconnect:
	}

	cancel()
	conn.Close() // unblocks the receiver's read
	wg.Wait()
	return reason, stopped
}

// senderLoop drains the outbound queue and forwards each item by type.
func (s *Session) senderLoop(ctx context.Context, conn *wsConn) {
	for {
		item, ok := s.out.Pop(ctx)
		if !ok {
			return
		}

		mime := "audio/pcm"
		if item.Kind == KindImage {
			mime = "image/jpeg"
		}

		msg := clientMessage{
			RealtimeInput: &realtimeInput{
				MediaChunks: []inlineData{{
					MimeType: mime,
					Data:     base64.StdEncoding.EncodeToString(item.Data),
				}},
			},
		}

		if err := conn.WriteJSON(msg); err != nil {
			if ctx.Err() == nil {
				log.Warn("live sender error", "error", err)
				s.signalReconnect(reasonTransient)
			}
			return
		}
	}
}

// receiverLoop consumes inbound messages until the connection dies.
func (s *Session) receiverLoop(ctx context.Context, conn *wsConn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("live receiver error", "error", err)
				s.signalReconnect(reasonTransient)
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug("live: unparseable message", "error", err)
			continue
		}

		s.handleMessage(ctx, conn, &msg)
	}
}

func (s *Session) handleMessage(ctx context.Context, conn *wsConn, msg *serverMessage) {
	if msg.SetupComplete != nil {
		log.Debug("live: setup complete")
	}

	if msg.ServerContent != nil {
		s.handleServerContent(ctx, msg.ServerContent)
	}

	if msg.ToolCall != nil {
		s.handleToolCalls(ctx, conn, msg.ToolCall.FunctionCalls)
	}

	if upd := msg.SessionResumptionUpdate; upd != nil && upd.Resumable && upd.NewHandle != "" {
		s.mu.Lock()
		s.resumeHandle = upd.NewHandle
		s.mu.Unlock()
		log.Debug("live: resumption handle updated")
	}

	if msg.GoAway != nil {
		log.Info("live: server go-away", "time_left", msg.GoAway.TimeLeft)
		s.signalReconnect(reasonGoAway)
	}

	if u := msg.UsageMetadata; u != nil && s.onUsage != nil {
		s.onUsage(Usage{
			PromptTokens:   u.PromptTokenCount,
			ResponseTokens: u.ResponseTokenCount,
			TotalTokens:    u.TotalTokenCount,
		})
	}
}

func (s *Session) handleServerContent(ctx context.Context, content *serverContent) {
	if content.ModelTurn != nil {
		for _, p := range content.ModelTurn.Parts {
			if p.InlineData == nil || !strings.HasPrefix(p.InlineData.MimeType, "audio/pcm") {
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil || len(audio) == 0 {
				continue
			}
			select {
			case s.playback <- audio:
			case <-ctx.Done():
				return
			}
		}
	}

	if t := content.InputTranscription; t != nil && s.onTranscript != nil {
		s.onTranscript("user", t.Text, t.Finished)
	}
	if t := content.OutputTranscription; t != nil && s.onTranscript != nil {
		s.onTranscript("assistant", t.Text, t.Finished || content.TurnComplete)
	}
}

// handleToolCalls executes each call and relays the results. Handler errors
// become error-string results so a broken tool cannot kill the conversation.
func (s *Session) handleToolCalls(ctx context.Context, conn *wsConn, calls []functionCall) {
	responses := make([]functionResponse, 0, len(calls))

	for _, fc := range calls {
		result := ""
		if s.onToolCall == nil {
			result = fmt.Sprintf("Error: no handler for tool %q", fc.Name)
		} else {
			args := fc.Args
			if args == nil {
				args = map[string]any{}
			}
			var err error
			result, err = s.onToolCall(ctx, fc.Name, args)
			if err != nil {
				log.Error("tool call failed", "tool", fc.Name, "error", err)
				result = fmt.Sprintf("Error: %v", err)
			}
		}

		responses = append(responses, functionResponse{
			ID:       fc.ID,
			Name:     fc.Name,
			Response: map[string]any{"result": result},
		})
	}

	if len(responses) == 0 {
		return
	}
	if err := conn.WriteJSON(clientMessage{ToolResponse: &toolResponse{FunctionResponses: responses}}); err != nil {
		if ctx.Err() == nil {
			log.Warn("live: tool response failed", "error", err)
			s.signalReconnect(reasonTransient)
		}
	}
}

func (s *Session) signalReconnect(reason reconnectReason) {
	select {
	case s.reconnect <- reason:
	default:
	}
}

func (s *Session) status(st Status) {
	if s.onStatus != nil {
		s.onStatus(st)
	}
}

// sleep waits d or until ctx is cancelled, returning false on cancellation.
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// wsConn serializes writes; the sender loop and tool responses share one
// websocket connection.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
