package service

import (
	"context"
	"encoding/json"

	"digital-store/internal/redisclient"
	"digital-store/internal/util"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	chatHistoryLimit = 10
	chatMaxTokens    = 500

	chatSystemPrompt = `You are a helpful customer support assistant for Digital Store,
an e-commerce platform that sells digital products including movies, software, and games.

Your role is to:
- Help customers with questions about products, orders, and account issues
- Provide information about pricing, availability, and product features
- Assist with technical support for digital downloads
- Guide users through the purchase process
- Handle refund and return inquiries professionally

Key information about Digital Store:
- We sell digital movies, software, and games
- All products are delivered digitally after purchase
- We accept PayPal payments
- Users can create accounts to track their purchases

Always be helpful, professional, and concise in your responses.
If you cannot answer a specific question, politely direct the customer to contact human support.`

	sentimentSystemPrompt = `You are a sentiment analysis expert. Analyze the sentiment of customer support messages and provide a rating from 1 to 5 stars (1=very negative, 5=very positive) and a confidence score between 0 and 1. Also determine if this is urgent (true/false). Respond with JSON in this format: {"rating": number, "confidence": number, "urgent": boolean, "emotion": "string"}`

	chatFallbackReply = "I'm sorry, I'm having trouble connecting right now. Please try again later or contact our support team."
)

// ChatHistoryStore keeps bounded per-session conversation state.
type ChatHistoryStore interface {
	AppendChatHistory(ctx context.Context, sessionID string, maxLen int, msgs ...redisclient.ChatMessage) error
	GetChatHistory(ctx context.Context, sessionID string) ([]redisclient.ChatMessage, error)
	ClearChatHistory(ctx context.Context, sessionID string) error
}

type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatService is the language-model-backed support chatbot.
type ChatService struct {
	client  completionClient
	history ChatHistoryStore
	model   string
	logger  *zap.Logger
}

// NewChatService creates a chat service. A nil client (no API key
// configured) disables the chatbot.
func NewChatService(client *openai.Client, history ChatHistoryStore, model string) *ChatService {
	s := &ChatService{
		history: history,
		model:   model,
		logger:  util.GetLogger(),
	}
	if client != nil {
		s.client = client
	}
	return s
}

// Enabled reports whether a language-model client is configured.
func (s *ChatService) Enabled() bool {
	return s.client != nil
}

// ChatReply is one assistant turn plus the sentiment read on the
// user's message.
type ChatReply struct {
	Response  string    `json:"response"`
	Sentiment Sentiment `json:"sentiment"`
}

// Chat sends the user message with the bounded conversation history to
// the model and appends both turns to the session's history.
func (s *ChatService) Chat(ctx context.Context, sessionID, message string) (*ChatReply, error) {
	if !s.Enabled() {
		return nil, ErrChatDisabled
	}

	history, err := s.history.GetChatHistory(ctx, sessionID)
	if err != nil {
		s.logger.Error("Failed to load chat history", zap.Error(err))
		history = nil
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: chatSystemPrompt,
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   chatMaxTokens,
		Temperature: 0.7,
	})
	if err != nil || len(resp.Choices) == 0 {
		util.ChatRequestsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Chat completion failed", zap.Error(err))
		return &ChatReply{Response: chatFallbackReply, Sentiment: neutralSentiment()}, err
	}

	reply := resp.Choices[0].Message.Content
	util.ChatRequestsTotal.WithLabelValues("ok").Inc()

	if err := s.history.AppendChatHistory(ctx, sessionID, chatHistoryLimit,
		redisclient.ChatMessage{Role: openai.ChatMessageRoleUser, Content: message},
		redisclient.ChatMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
	); err != nil {
		s.logger.Error("Failed to store chat history", zap.Error(err))
	}

	return &ChatReply{
		Response:  reply,
		Sentiment: s.AnalyzeSentiment(ctx, message),
	}, nil
}

// Sentiment classifies a support message for prioritization.
type Sentiment struct {
	Rating     int     `json:"rating"`
	Confidence float64 `json:"confidence"`
	Urgent     bool    `json:"urgent"`
	Emotion    string  `json:"emotion"`
}

func neutralSentiment() Sentiment {
	return Sentiment{Rating: 3, Confidence: 0.5, Urgent: false, Emotion: "neutral"}
}

// AnalyzeSentiment rates a customer message 1-5. Classification is
// best-effort: any model or parse failure degrades to a neutral read.
func (s *ChatService) AnalyzeSentiment(ctx context.Context, message string) Sentiment {
	if !s.Enabled() {
		return neutralSentiment()
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sentimentSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		MaxTokens: 200,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		s.logger.Error("Sentiment analysis failed", zap.Error(err))
		return neutralSentiment()
	}

	var raw struct {
		Rating     float64 `json:"rating"`
		Confidence float64 `json:"confidence"`
		Urgent     bool    `json:"urgent"`
		Emotion    string  `json:"emotion"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &raw); err != nil {
		s.logger.Error("Failed to parse sentiment response", zap.Error(err))
		return neutralSentiment()
	}

	result := Sentiment{
		Rating:     clampInt(int(raw.Rating+0.5), 1, 5),
		Confidence: clampFloat(raw.Confidence, 0, 1),
		Urgent:     raw.Urgent,
		Emotion:    raw.Emotion,
	}
	if result.Emotion == "" {
		result.Emotion = "neutral"
	}
	return result
}

// History returns the session's bounded conversation.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]redisclient.ChatMessage, error) {
	history, err := s.history.GetChatHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []redisclient.ChatMessage{}
	}
	return history, nil
}

// ClearHistory drops the session's conversation.
func (s *ChatService) ClearHistory(ctx context.Context, sessionID string) error {
	return s.history.ClearChatHistory(ctx, sessionID)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
