package live

// Wire types for the Gemini Live BidiGenerateContent websocket protocol
// (v1beta). Only the fields the session actually reads or writes are
// modeled; unknown fields are ignored on decode.

// clientMessage is the envelope for everything the client sends.
type clientMessage struct {
	Setup         *setupMessage  `json:"setup,omitempty"`
	RealtimeInput *realtimeInput `json:"realtimeInput,omitempty"`
	ToolResponse  *toolResponse  `json:"toolResponse,omitempty"`
}

// setupMessage configures a new connection. SessionResumption carries the
// token from a prior connection so a reconnect continues the conversation;
// ContextWindowCompression keeps long sessions from being truncated by the
// model's own context limit.
type setupMessage struct {
	Model                    string              `json:"model"`
	GenerationConfig         *generationConfig   `json:"generationConfig,omitempty"`
	SystemInstruction        *contentBlock       `json:"systemInstruction,omitempty"`
	Tools                    []toolBlock         `json:"tools,omitempty"`
	SessionResumption        *sessionResumption  `json:"sessionResumption,omitempty"`
	ContextWindowCompression *contextCompression `json:"contextWindowCompression,omitempty"`
	InputAudioTranscription  *struct{}           `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}           `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig *voiceConfig `json:"voiceConfig,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig *prebuiltVoice `json:"prebuiltVoiceConfig,omitempty"`
}

type prebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type contentBlock struct {
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type toolBlock struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type sessionResumption struct {
	Handle string `json:"handle,omitempty"`
}

type contextCompression struct {
	SlidingWindow *slidingWindow `json:"slidingWindow,omitempty"`
}

type slidingWindow struct {
	TargetTokens int64 `json:"targetTokens,omitempty,string"`
}

type realtimeInput struct {
	MediaChunks []inlineData `json:"mediaChunks"`
}

type toolResponse struct {
	FunctionResponses []functionResponse `json:"functionResponses"`
}

type functionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// serverMessage is the envelope for everything the server sends.
type serverMessage struct {
	SetupComplete           *struct{}         `json:"setupComplete,omitempty"`
	ServerContent           *serverContent    `json:"serverContent,omitempty"`
	ToolCall                *toolCallMessage  `json:"toolCall,omitempty"`
	ToolCallCancellation    *struct{}         `json:"toolCallCancellation,omitempty"`
	SessionResumptionUpdate *resumptionUpdate `json:"sessionResumptionUpdate,omitempty"`
	GoAway                  *goAwayMessage    `json:"goAway,omitempty"`
	UsageMetadata           *usageMetadata    `json:"usageMetadata,omitempty"`
}

type serverContent struct {
	ModelTurn           *contentBlock  `json:"modelTurn,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
}

type transcription struct {
	Text     string `json:"text"`
	Finished bool   `json:"finished,omitempty"`
}

type toolCallMessage struct {
	FunctionCalls []functionCall `json:"functionCalls"`
}

type functionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// resumptionUpdate delivers a fresh resumption handle. The handle is only
// stored when the server marks it resumable.
type resumptionUpdate struct {
	NewHandle string `json:"newHandle"`
	Resumable bool   `json:"resumable"`
}

// goAwayMessage warns that the server will close this connection soon.
type goAwayMessage struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount   int `json:"promptTokenCount,omitempty"`
	ResponseTokenCount int `json:"responseTokenCount,omitempty"`
	TotalTokenCount    int `json:"totalTokenCount,omitempty"`
}
